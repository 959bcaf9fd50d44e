package sync

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"fitlog-sync-service/internal/logger"
	"fitlog-sync-service/internal/remote"
	"fitlog-sync-service/internal/store"
)

// SmartLogger is the single entry point UI actions go through: it attempts
// the remote call when online and falls back to queueing when offline or
// when the transport fails mid-call. Callers never branch on connectivity.
//
// Only online-path rejections propagate as errors: those represent data the
// user should see rejected right away. Failures during a later drain of a
// queued action have no caller left to tell.
type SmartLogger struct {
	store  store.Store
	remote Dispatcher
}

func NewSmartLogger(st store.Store, remote Dispatcher) *SmartLogger {
	return &SmartLogger{
		store:  st,
		remote: remote,
	}
}

func (s *SmartLogger) LogWorkout(ctx context.Context, p remote.WorkoutPayload) (*LogResult, error) {
	return s.smartLog(ctx, store.ActionLogWorkout, p)
}

func (s *SmartLogger) LogCalories(ctx context.Context, p remote.CaloriesPayload) (*LogResult, error) {
	return s.smartLog(ctx, store.ActionLogCalories, p)
}

func (s *SmartLogger) SetIntent(ctx context.Context, p remote.IntentPayload) (*LogResult, error) {
	return s.smartLog(ctx, store.ActionSetIntent, p)
}

func (s *SmartLogger) CreatePost(ctx context.Context, p remote.PostPayload) (*LogResult, error) {
	return s.smartLog(ctx, store.ActionCreatePost, p)
}

func (s *SmartLogger) AddComment(ctx context.Context, p remote.CommentPayload) (*LogResult, error) {
	return s.smartLog(ctx, store.ActionAddComment, p)
}

func (s *SmartLogger) smartLog(ctx context.Context, actionType store.ActionType, payload any) (*LogResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	state, err := s.store.State(ctx)
	if err != nil {
		return nil, err
	}

	if state.Online {
		data, err := s.remote.Execute(ctx, store.PendingAction{Type: actionType, Payload: raw})
		switch {
		case err == nil:
			return &LogResult{Data: data}, nil
		case remote.IsTransport(err):
			// Connectivity just dropped; flip offline and queue instead.
			logger.Log.Warn("remote unreachable, queueing action",
				zap.String("type", string(actionType)),
				zap.Error(err),
			)
			if serr := s.store.SetOnline(ctx, false); serr != nil {
				return nil, serr
			}
		default:
			// The remote rejected the data, not the delivery. Queueing a
			// rejected payload would just fail again later.
			return nil, err
		}
	}

	id, err := s.store.QueueAction(ctx, actionType, raw)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("action queued for sync",
		zap.String("id", id),
		zap.String("type", string(actionType)),
	)
	return &LogResult{Offline: true, ActionID: id}, nil
}
