// internal/alerting/alerter.go
package alerting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/alegjs044/Gecko-house-sub000/internal/data"
)

// Directory resolves a user's registered contact address.
type Directory interface {
	ContactAddress(ctx context.Context, userID int) (string, error)
}

// Dispatcher notifies users about critical readings by email. By the
// time it runs, the critical row is already persisted and the realtime
// event already delivered, so every failure here is logged and
// swallowed: alerting must never unwind the ingestion path.
type Dispatcher struct {
	directory Directory
	mailer    Mailer
	log       *zap.Logger
}

func NewDispatcher(directory Directory, mailer Mailer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{directory: directory, mailer: mailer, log: log}
}

// DispatchCritical composes and sends the breach notification for one
// critical reading.
func (d *Dispatcher) DispatchCritical(ctx context.Context, alert data.CriticalAlert) {
	address, err := d.directory.ContactAddress(ctx, alert.UserID)
	if err != nil {
		d.log.Warn("could not resolve alert recipient",
			zap.Int("user_id", alert.UserID), zap.Error(err))
		return
	}

	subject := fmt.Sprintf("Alerta del terrario: %s fuera de rango", sensorLabel(alert.Kind, alert.Zone))
	if err := d.mailer.Send(address, subject, composeBody(alert)); err != nil {
		d.log.Warn("alert mail send failed",
			zap.Int("user_id", alert.UserID),
			zap.String("kind", string(alert.Kind)),
			zap.Error(err))
		return
	}

	d.log.Info("critical alert dispatched",
		zap.Int("user_id", alert.UserID),
		zap.String("kind", string(alert.Kind)),
		zap.Float64("value", alert.Value))
}

func composeBody(alert data.CriticalAlert) string {
	direction := "por encima del máximo"
	if alert.Value < alert.Bounds.Low {
		direction = "por debajo del mínimo"
	}
	return fmt.Sprintf(
		"Se detectó un valor crítico de %s: %.2f (%s).\nRango esperado: %.2f – %.2f.\nFecha: %s.",
		sensorLabel(alert.Kind, alert.Zone),
		alert.Value,
		direction,
		alert.Bounds.Low,
		alert.Bounds.High,
		alert.Timestamp.Format("02/01/2006 15:04:05"),
	)
}

func sensorLabel(kind data.SensorKind, zone data.Zone) string {
	switch kind {
	case data.KindTemperature:
		if zone == data.ZoneHot {
			return "temperatura (zona caliente)"
		}
		return "temperatura (zona fría)"
	case data.KindHumidity:
		return "humedad"
	case data.KindUVLight:
		return "luz UV"
	default:
		return string(kind)
	}
}
