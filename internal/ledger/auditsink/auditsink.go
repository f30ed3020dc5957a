package auditsink

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Событие аудита операций по счетам лояльности
type Event struct {
	Type       string    `json:"type"`
	CustomerID string    `json:"customerId"`
	Amount     int       `json:"amount"`
	OrderID    int       `json:"orderId,omitempty"`
	RewardID   string    `json:"rewardId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// AuditSink пишет события во внешний журнал аудита.
// Запись не гарантируется: ошибка логируется и не возвращается вызывающему
type AuditSink interface {
	TryRecord(event Event)
}

func NewAuditSink(serviceAddr string, zaplog *zap.Logger) AuditSink {
	if serviceAddr == "" {
		return nopSink{}
	}
	client := resty.New().SetTimeout(2 * time.Second)
	return &auditSink{
		serviceAddr: serviceAddr,
		client:      client,
		zaplog:      zaplog,
	}
}

type auditSink struct {
	serviceAddr string
	client      *resty.Client
	zaplog      *zap.Logger
}

func (sink *auditSink) TryRecord(event Event) {
	path := "/api/audit/events"

	resp, err := sink.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(sink.serviceAddr + path)
	if err != nil {
		sink.zaplog.Warn("audit record failed",
			zap.String("type", event.Type),
			zap.String("customer", event.CustomerID),
			zap.Error(err))
		return
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted {
		sink.zaplog.Warn("audit record rejected",
			zap.String("type", event.Type),
			zap.String("customer", event.CustomerID),
			zap.Int("status", resp.StatusCode()))
	}
}

// nopSink для запуска без сервиса аудита
type nopSink struct{}

func (nopSink) TryRecord(Event) {}
