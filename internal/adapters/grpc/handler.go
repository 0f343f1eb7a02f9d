package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/internal/engine"
	"github.com/quentinrf/kbdlightd/internal/ports"
)

// defaultHistory is the window History returns when no range is given
const defaultHistory = 24 * time.Hour

// Controller is what the control service needs from the engine
type Controller interface {
	ports.PresenceToggle
	Status() engine.Status
}

// ControlHandler implements the gRPC control service
type ControlHandler struct {
	ctl     Controller
	repo    domain.TransitionRepository
	session string
}

// NewControlHandler creates a new gRPC handler. session identifies the
// running process in Status replies
func NewControlHandler(ctl Controller, repo domain.TransitionRepository, session string) *ControlHandler {
	return &ControlHandler{
		ctl:     ctl,
		repo:    repo,
		session: session,
	}
}

// Toggle flips the enabled flag and returns the new value
func (h *ControlHandler) Toggle(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BoolValue, error) {
	enabled := h.ctl.Toggle()
	log.Info().Bool("enabled", enabled).Msg("Toggle called")
	return wrapperspb.Bool(enabled), nil
}

// SetEnabled sets the enabled flag and returns it
func (h *ControlHandler) SetEnabled(ctx context.Context, req *wrapperspb.BoolValue) (*wrapperspb.BoolValue, error) {
	log.Info().Bool("enabled", req.GetValue()).Msg("SetEnabled called")
	h.ctl.SetEnabled(req.GetValue())
	return wrapperspb.Bool(h.ctl.Enabled()), nil
}

// Status returns the current engine state
func (h *ControlHandler) Status(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := h.ctl.Status()

	fields := map[string]any{
		"level":            int(st.Level),
		"intent":           st.Intent,
		"enabled":          st.Enabled,
		"state":            stateLabel(st.Intent, st.Enabled),
		"last_activity":    st.LastActivity.UTC().Format(time.RFC3339Nano),
		"idle_for_seconds": st.IdleFor.Seconds(),
		"timeout_seconds":  st.Timeout.Seconds(),
		"session":          h.session,
	}

	last, err := h.repo.GetLatestTransition(ctx)
	switch {
	case err == nil:
		fields["last_cause"] = string(last.Cause)
	case !errors.Is(err, domain.ErrTransitionNotFound):
		log.Warn().Err(err).Msg("failed to read latest transition")
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode status")
		return nil, status.Error(codes.Internal, "failed to encode status")
	}
	return out, nil
}

// History returns journaled transitions in [start, end). Both bounds are
// Unix seconds; missing bounds default to the last day
func (h *ControlHandler) History(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	end := time.Now()
	if v, ok := req.GetFields()["end"]; ok {
		end = unixSeconds(v.GetNumberValue())
	}
	start := end.Add(-defaultHistory)
	if v, ok := req.GetFields()["start"]; ok {
		start = unixSeconds(v.GetNumberValue())
	}

	log.Info().
		Time("start", start).
		Time("end", end).
		Msg("History called")

	if !start.Before(end) {
		return nil, status.Error(codes.InvalidArgument, "start must be before end")
	}

	transitions, err := h.repo.GetTransitionsInRange(ctx, start, end)
	if err != nil {
		log.Error().Err(err).Msg("failed to get transitions")
		return nil, status.Error(codes.Internal, "failed to get transitions")
	}

	items := make([]any, len(transitions))
	for i, t := range transitions {
		items[i] = convertTransition(t)
	}

	out, err := structpb.NewStruct(map[string]any{"transitions": items})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode history")
		return nil, status.Error(codes.Internal, "failed to encode history")
	}
	return out, nil
}

// convertTransition converts a journal entry to a struct value
func convertTransition(t *domain.Transition) map[string]any {
	return map[string]any{
		"id":        t.ID,
		"session":   t.Session,
		"level":     int(t.Level),
		"intent":    t.Intent,
		"enabled":   t.Enabled,
		"cause":     string(t.Cause),
		"state":     t.State(),
		"timestamp": t.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func stateLabel(intent, enabled bool) string {
	t := domain.Transition{Intent: intent, Enabled: enabled}
	return t.State()
}

func unixSeconds(s float64) time.Time {
	sec := int64(s)
	return time.Unix(sec, int64((s-float64(sec))*1e9))
}
