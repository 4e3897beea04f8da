package wmi

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Executor runs queries through a single Locator. It is safe to reuse across
// requests but expects one Execute at a time.
type Executor struct {
	locator Locator
	logger  *logrus.Logger
}

// NewExecutor wraps an established locator. A nil locator yields an executor
// whose every query fails with "WMI not initialized".
func NewExecutor(locator Locator, logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Executor{
		locator: locator,
		logger:  logger,
	}
}

// Close releases the locator.
func (e *Executor) Close() error {
	if e.locator == nil {
		return nil
	}
	err := e.locator.Close()
	e.locator = nil
	return err
}

// Execute runs query against namespace. Failures are reported in the
// returned result, never as a panic or error.
func (e *Executor) Execute(namespace, query string) QueryResult {
	result := newResult(namespace, query)
	log := e.logger.WithFields(logrus.Fields{
		"namespace": namespace,
		"query":     query,
	})

	if e.locator == nil {
		log.Error("Query attempted without a WMI connection")
		return result.fail(ErrNotInitialized.Error())
	}

	service, err := e.locator.ConnectServer(namespace)
	if err != nil {
		log.WithError(err).Error("Failed to connect to namespace")
		return result.fail("Failed to connect to WMI namespace: " + namespace)
	}
	defer service.Release()

	if err := service.Authorize(); err != nil {
		log.WithError(err).Error("Failed to set proxy security")
		return result.fail("Failed to set proxy security")
	}

	set, err := service.ExecQuery(query)
	if err != nil {
		log.WithError(err).Error("Failed to execute query")
		return result.fail("Failed to execute WMI query: " + query)
	}
	defer set.Release()

	for {
		obj, err := set.Next()
		if err != nil {
			if !errors.Is(err, ErrNoMoreItems) {
				log.WithError(err).Warn("Enumeration stopped early")
			}
			break
		}
		result.Objects = append(result.Objects, e.readObject(obj, log))
	}

	log.WithField("count", len(result.Objects)).Debug("Query completed")
	return result.succeed()
}

func (e *Executor) readObject(obj Object, log *logrus.Entry) *Record {
	defer obj.Release()

	record := NewRecord()
	props, err := obj.Properties()
	if err != nil {
		log.WithError(err).Warn("Failed to list object properties")
		return record
	}
	for _, p := range props {
		record.Set(p.Name, Convert(p.Variant))
	}
	return record
}
