package feed

import (
	"context"
	"sync"
	"time"

	"github.com/oselight/stripdeck/internal/strips"
	"github.com/oselight/stripdeck/internal/websocket"
	"github.com/oselight/stripdeck/pkg/logger"
)

// Service periodically refreshes the strip board from the position feed
// and broadcasts detected changes. Feed failures are logged and skipped;
// the board keeps its last known state.
type Service struct {
	client   *Client
	board    *strips.Board
	detector *strips.ChangeDetector
	wsServer *websocket.Server
	interval time.Duration
	logger   *logger.Logger

	wg sync.WaitGroup
}

// NewService creates a new feed refresh service
func NewService(client *Client, board *strips.Board, wsServer *websocket.Server, interval time.Duration, log *logger.Logger) *Service {
	return &Service{
		client:   client,
		board:    board,
		detector: strips.NewChangeDetector(log),
		wsServer: wsServer,
		interval: interval,
		logger:   log.Named("feed"),
	}
}

// Start launches the refresh loop. It runs until the context is canceled;
// Wait blocks until the loop has drained.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Wait blocks until the refresh loop has stopped
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Feed refresh loop started", logger.Duration("interval", s.interval))

	// Prime the board before the first tick
	s.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Feed refresh loop stopped")
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Service) refresh(ctx context.Context) {
	fetched, err := s.client.Fetch(ctx)
	if err != nil {
		s.logger.Warn("Feed refresh failed", logger.Error(err))
		return
	}

	seen := make(map[string]struct{}, len(fetched))
	for _, strip := range fetched {
		s.board.Upsert(strip)
		seen[strip.Callsign] = struct{}{}
	}

	// Drop strips that left the feed coverage
	for _, strip := range s.board.Snapshot().Strips {
		if _, ok := seen[strip.Callsign]; !ok {
			s.board.Remove(strip.Callsign)
		}
	}

	snapshot := s.board.Snapshot()
	changes := s.detector.DetectChanges(snapshot)
	if len(changes) == 0 {
		return
	}

	s.logger.Debug("Board changed",
		logger.Int("strips", len(snapshot.Strips)),
		logger.Int("changes", len(changes)))

	s.wsServer.Broadcast(&websocket.Message{
		Type: "strip_changes",
		Data: map[string]interface{}{
			"changes":   changes,
			"timestamp": snapshot.TakenAt,
		},
	})
}
