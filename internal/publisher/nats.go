package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"survey-plan/internal/plan"
)

type NATSPublisher struct {
	nc            *nats.Conn
	subjectPrefix string
	logSubjects   bool
	metrics       PublisherMetrics
	logger        *logrus.Logger
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, subjectPrefix string, logSubjects bool, m PublisherMetrics, logger *logrus.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("survey-plan"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, subjectPrefix: subjectPrefix, logSubjects: logSubjects, metrics: m, logger: logger}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PlanMessage is the summary published after each completed pass.
type PlanMessage struct {
	PassID       string     `json:"passId"`
	Timestamp    time.Time  `json:"timestamp"`
	AreaSqm      float64    `json:"areaM2"`
	AreaAcres    float64    `json:"areaAcres"`
	StationCount int        `json:"stationCount"`
	Status       string     `json:"status"`
	Centroid     [2]float64 `json:"centroid"`
	GeoJSONBytes int        `json:"geojsonBytes"`
}

func NewPlanMessage(r *plan.Result, now time.Time) PlanMessage {
	msg := PlanMessage{
		PassID:       r.ID.String(),
		Timestamp:    now,
		AreaSqm:      r.Summary.AreaSqm,
		AreaAcres:    r.Summary.AreaAcres,
		StationCount: r.Summary.StationCount,
		Status:       r.Summary.Status,
		GeoJSONBytes: len(r.GeoJSON),
	}
	if r.Plan != nil {
		msg.Centroid = r.Plan.AreaLabel.Position
	}
	return msg
}

// Subject is <prefix>.<status>, e.g. survey.plans.closed.
func Subject(prefix, status string) string {
	return fmt.Sprintf("%s.%s", subjectToken(prefix), subjectToken(strings.ToLower(status)))
}

// PublishSummary implements plan.Notifier.
func (p *NATSPublisher) PublishSummary(r *plan.Result) error {
	return p.Publish(NewPlanMessage(r, time.Now().UTC()))
}

func (p *NATSPublisher) Publish(msg PlanMessage) error {
	subject := Subject(p.subjectPrefix, msg.Status)
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		p.logger.WithField("subject", subject).Debug("nats publish")
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '/'; dots in the prefix
	// are kept so "survey.plans" stays hierarchical.
	repl := strings.NewReplacer(" ", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = strings.Trim(repl.Replace(s), ".")
	if s == "" {
		s = "_"
	}
	return s
}
