package grpc

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// StatusView is the decoded Status reply
type StatusView struct {
	Level        domain.Level
	Intent       bool
	Enabled      bool
	State        string
	LastActivity time.Time
	IdleFor      time.Duration
	Timeout      time.Duration
	Session      string
	LastCause    string
}

// ControlClient talks to a running daemon
type ControlClient struct {
	cc grpc.ClientConnInterface
}

// Dial connects to addr, with mTLS when tlsCfg is set
func Dial(addr string, tlsCfg *tls.Config) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if tlsCfg != nil {
		creds = credentials.NewTLS(tlsCfg)
	}
	return grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
}

// NewControlClient wraps a connection
func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

// Toggle flips the enabled flag and returns the new value
func (c *ControlClient) Toggle(ctx context.Context, opts ...grpc.CallOption) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullMethod("Toggle"), &emptypb.Empty{}, out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// SetEnabled sets the enabled flag and returns the resulting value
func (c *ControlClient) SetEnabled(ctx context.Context, enabled bool, opts ...grpc.CallOption) (bool, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullMethod("SetEnabled"), wrapperspb.Bool(enabled), out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

// Status fetches the engine state
func (c *ControlClient) Status(ctx context.Context, opts ...grpc.CallOption) (StatusView, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Status"), &emptypb.Empty{}, out, opts...); err != nil {
		return StatusView{}, err
	}

	f := out.GetFields()
	last, err := time.Parse(time.RFC3339Nano, f["last_activity"].GetStringValue())
	if err != nil {
		return StatusView{}, fmt.Errorf("bad last_activity in status: %w", err)
	}

	return StatusView{
		Level:        domain.Level(f["level"].GetNumberValue()),
		Intent:       f["intent"].GetBoolValue(),
		Enabled:      f["enabled"].GetBoolValue(),
		State:        f["state"].GetStringValue(),
		LastActivity: last,
		IdleFor:      seconds(f["idle_for_seconds"].GetNumberValue()),
		Timeout:      seconds(f["timeout_seconds"].GetNumberValue()),
		Session:      f["session"].GetStringValue(),
		LastCause:    f["last_cause"].GetStringValue(),
	}, nil
}

// History fetches journaled transitions in [start, end)
func (c *ControlClient) History(ctx context.Context, start, end time.Time, opts ...grpc.CallOption) ([]domain.Transition, error) {
	req, err := structpb.NewStruct(map[string]any{
		"start": float64(start.UnixNano()) / 1e9,
		"end":   float64(end.UnixNano()) / 1e9,
	})
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("History"), req, out, opts...); err != nil {
		return nil, err
	}

	items := out.GetFields()["transitions"].GetListValue().GetValues()
	transitions := make([]domain.Transition, 0, len(items))
	for _, item := range items {
		t, err := decodeTransition(item.GetStructValue())
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	return transitions, nil
}

func decodeTransition(s *structpb.Struct) (domain.Transition, error) {
	f := s.GetFields()

	cause, err := domain.ParseCause(f["cause"].GetStringValue())
	if err != nil {
		return domain.Transition{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, f["timestamp"].GetStringValue())
	if err != nil {
		return domain.Transition{}, fmt.Errorf("bad timestamp in history: %w", err)
	}

	return domain.Transition{
		ID:        int64(f["id"].GetNumberValue()),
		Session:   f["session"].GetStringValue(),
		Level:     domain.Level(f["level"].GetNumberValue()),
		Intent:    f["intent"].GetBoolValue(),
		Enabled:   f["enabled"].GetBoolValue(),
		Cause:     cause,
		Timestamp: ts,
	}, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
