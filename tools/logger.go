package tools

import (
	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// InitLogger configures the shared logger. An unknown level falls back to info.
func InitLogger(level string, jsonOutput bool) {
	if jsonOutput {
		Log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   false,
			PadLevelText:    true,
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

func LogRunSummary(source string, total, processed, skipped, notFound, failed, warnings int) {
	Log.WithFields(logrus.Fields{
		"source":    source,
		"rows":      total,
		"processed": processed,
		"skipped":   skipped,
		"not_found": notFound,
		"failed":    failed,
		"warnings":  warnings,
	}).Info("Attribute sync finished")
}
