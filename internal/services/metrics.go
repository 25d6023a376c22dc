package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// numbersAllocated counts numbers handed out, by the record set that took them.
	numbersAllocated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docregistry_numbers_allocated_total",
			Help: "Numbers claimed by reservations or documents.",
		},
		[]string{"kind"},
	)

	// allocationConflicts counts attempts that lost a race for a number.
	allocationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docregistry_allocation_conflicts_total",
			Help: "Allocation attempts rejected because the number was already taken.",
		},
	)

	// allocationRetries counts fresh scans started after a conflict.
	allocationRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docregistry_allocation_retries_total",
			Help: "Allocation attempts retried after a conflict.",
		},
	)
)

func init() {
	prometheus.MustRegister(numbersAllocated, allocationConflicts, allocationRetries)
}
