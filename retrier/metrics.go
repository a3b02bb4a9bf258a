// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package retrier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	totalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_retrier_total_requests",
		Help: "Total number of submission attempts made by a retrier client, including retries.",
	}, []string{"retrier", "method"})

	successfulRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpc_retrier_requests",
		Help: "Number of requests a retrier client completed successfully.",
	}, []string{"retrier", "method"})
)
