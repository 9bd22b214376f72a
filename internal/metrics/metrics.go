// Package metrics exposes Prometheus counters for the progression
// engine. All collectors are registered on the default registry and
// served from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActivitiesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fluenta",
		Name:      "activities_recorded_total",
		Help:      "Activities recorded, by module.",
	}, []string{"module"})

	XPGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fluenta",
		Name:      "xp_granted_total",
		Help:      "Experience points granted, by source (activity, achievement, badge, challenge).",
	}, []string{"source"})

	LevelUps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fluenta",
		Name:      "level_ups_total",
		Help:      "Level-up events observed while recording activities.",
	})

	AchievementsUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fluenta",
		Name:      "achievements_unlocked_total",
		Help:      "Achievements unlocked.",
	})

	BadgesUnlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fluenta",
		Name:      "badges_unlocked_total",
		Help:      "Badges awarded.",
	})

	ChallengesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fluenta",
		Name:      "challenges_completed_total",
		Help:      "Sub-challenges completed, by set type (daily, weekly).",
	}, []string{"type"})
)
