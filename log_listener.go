package manifest

import (
	"log/slog"

	"github.com/simon020286/go-manifest/models"
)

// LogListener writes manifest events to a slog.Logger
type LogListener struct {
	logger *slog.Logger
}

func NewLogListener(logger *slog.Logger) *LogListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogListener{logger: logger}
}

func (l *LogListener) OnEvent(event models.Event) {
	switch event.Type {
	case models.EventInputAppended, models.EventOutputAppended:
		l.logger.Debug("manifest file recorded",
			"event", string(event.Type),
			"run_id", event.Data["run_id"],
			"name", event.Data["name"],
		)

	case models.EventReportSaved:
		l.logger.Info("manifest saved",
			"run_id", event.Data["run_id"],
			"destination", event.Data["destination"],
			"inputs", event.Data["inputs"],
			"outputs", event.Data["outputs"],
		)

	case models.EventReportError:
		l.logger.Error("manifest save failed",
			"run_id", event.Data["run_id"],
			"destination", event.Data["destination"],
			"error", event.Data["error"],
		)
	}
}
