// Package alert evaluates completed briefs against alerting thresholds.
package alert

import "github.com/ppiankov/marketscout/internal/model"

// CriticalSentiment is the sentiment at or above which a CRITICAL alert fires
const CriticalSentiment = 90

// Alert messages
const (
	MessageCritical = "sentiment high-spike detected"
	MessageMomentum = "rapid technical/hiring movement"
	MessageRelease  = "official product launch detected"
)

// Analyze returns the alerts raised by briefs, in brief order and, per
// brief, in rule order CRITICAL, MOMENTUM, RELEASE. Briefs without an
// insight raise nothing.
func Analyze(briefs []model.Brief) []model.Alert {
	alerts := []model.Alert{}

	for _, b := range briefs {
		if b.Insight == nil {
			continue
		}

		if b.Insight.Sentiment >= CriticalSentiment {
			alerts = append(alerts, model.Alert{Company: b.Company, Type: model.AlertCritical, Message: MessageCritical})
		}
		if b.Insight.Velocity == model.VelocityHigh {
			alerts = append(alerts, model.Alert{Company: b.Company, Type: model.AlertMomentum, Message: MessageMomentum})
		}
		if b.Insight.Signals.Releases {
			alerts = append(alerts, model.Alert{Company: b.Company, Type: model.AlertRelease, Message: MessageRelease})
		}
	}

	return alerts
}
