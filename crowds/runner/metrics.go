/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "siliconcrowds_jobs_total",
			Help: "Total number of evaluation jobs by outcome",
		},
		[]string{"category", "template", "outcome"},
	)

	jobAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siliconcrowds_job_attempts",
			Help:    "Remote calls made per evaluation job",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
		[]string{"category"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "siliconcrowds_job_duration_seconds",
			Help:    "Wall time of evaluation jobs",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"category"},
	)
)
