// Package metrics defines and registers all custom Prometheus metrics for
// the user directory service. It is the single source of truth for metric
// names, labels, and help strings. Metrics register with the default
// registry at package load; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "user_directory"

// AuthzDecisionsTotal counts authorization decisions.
// Label:
//   - decision: "allow" or "deny"
var AuthzDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_decisions_total",
		Help:      "Total number of authorization decisions rendered, by outcome.",
	},
	[]string{"decision"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// UserWritesTotal counts orchestrated write operations.
// Labels:
//   - operation: "create", "update", or "delete"
//   - result: "success" or "failure"
var UserWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_writes_total",
		Help:      "Total number of orchestrated user write operations, by result.",
	},
	[]string{"operation", "result"},
)

// PartialWritesTotal counts writes that failed after a prior stage had
// already committed, leaving the user and its role assignments
// inconsistent until reconciled.
// Labels:
//   - operation: "create", "update", or "delete"
//   - stage: the stage that failed (e.g. "write_assignments")
var PartialWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "partial_writes_total",
		Help:      "Total number of multi-entity writes left partially applied, by failed stage.",
	},
	[]string{"operation", "stage"},
)
