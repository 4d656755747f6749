package repository

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-kivik/kivik/v4"

	"smart-reader/internal/domain"
)

// ChangeHandler receives one re-render event per changed document.
type ChangeHandler func(userID string, event domain.Event)

// RemoteChangeFeed follows the CouchDB _changes feed and turns project and
// note document changes into per-account events.
type RemoteChangeFeed struct {
	db         *kivik.DB
	logger     *log.Logger
	retryDelay time.Duration
}

func NewRemoteChangeFeed(client *kivik.Client, dbName string, logger *log.Logger) *RemoteChangeFeed {
	return &RemoteChangeFeed{
		db:         client.DB(dbName),
		logger:     logger,
		retryDelay: 5 * time.Second,
	}
}

// Run blocks until ctx is done, reconnecting after feed errors.
func (f *RemoteChangeFeed) Run(ctx context.Context, handle ChangeHandler) {
	since := "now"
	for {
		last, err := f.follow(ctx, since, handle)
		if last != "" {
			since = last
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			f.logger.Warn("change feed interrupted", "err", err, "retry_in", f.retryDelay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.retryDelay):
		}
	}
}

func (f *RemoteChangeFeed) follow(ctx context.Context, since string, handle ChangeHandler) (string, error) {
	changes := f.db.Changes(ctx, kivik.Params(map[string]interface{}{
		"feed":      "continuous",
		"since":     since,
		"heartbeat": 30000,
	}))
	defer changes.Close()

	last := ""
	for changes.Next() {
		last = changes.Seq()
		userID, event, ok := eventForDoc(changes.ID())
		if !ok {
			continue
		}
		handle(userID, event)
	}
	return last, changes.Err()
}

// eventForDoc maps a document id to the account it belongs to and the view
// that must refresh. Other document types are ignored.
func eventForDoc(docID string) (string, domain.Event, bool) {
	parts := strings.Split(docID, ":")
	switch {
	case len(parts) == 3 && parts[0] == docTypeProject:
		return parts[1], domain.Event{Type: domain.EventProjectsChanged, ProjectID: parts[2]}, true
	case len(parts) == 4 && parts[0] == docTypeNote:
		return parts[1], domain.Event{Type: domain.EventNotesChanged, ProjectID: parts[2]}, true
	}
	return "", domain.Event{}, false
}
