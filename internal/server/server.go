// Package server exposes the simulator as the gRPC service mlfq.v1.Simulator.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ChuLiYu/mlfq-sim/internal/controller"
	"github.com/ChuLiYu/mlfq-sim/internal/engine"
	"github.com/ChuLiYu/mlfq-sim/internal/metrics"
	"github.com/ChuLiYu/mlfq-sim/internal/report"
	"github.com/ChuLiYu/mlfq-sim/internal/workload"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// DefaultMaxTicks bounds the simulated span of one Simulate request.
const DefaultMaxTicks = 1_000_000

// Config configures a Server.
type Config struct {
	Schemes     []types.SchemeID // Used when a request names none
	Parallelism int
	MaxTicks    int // Upper bound on latest arrival plus total service; 0 means DefaultMaxTicks
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

// Server implements SimulatorServer. Every request runs on its own
// controller, so concurrent requests share nothing but metrics.
type Server struct {
	config Config
	log    *slog.Logger
}

// NewServer creates a server. With no schemes configured all predefined
// schemes are used.
func NewServer(config Config) *Server {
	if len(config.Schemes) == 0 {
		config.Schemes = engine.SchemeIDs()
	}
	if config.MaxTicks <= 0 {
		config.MaxTicks = DefaultMaxTicks
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config: config,
		log:    logger.With("component", "server"),
	}
}

// SimulateResponse is the decoded form of a Simulate reply.
type SimulateResponse struct {
	RunID    string                            `json:"run_id"`
	Results  []types.RunResult                 `json:"results"`
	Averages map[types.SchemeID]types.Averages `json:"averages"`
	Report   string                            `json:"report"`
}

// Simulate parses the workload, runs the requested schemes and returns the
// results together with the rendered text report.
func (s *Server) Simulate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	text := fields["workload"].GetStringValue()
	tasks, err := workload.Parse(strings.NewReader(text))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "workload: %v", err)
	}
	if span := horizon(tasks); span > int64(s.config.MaxTicks) {
		return nil, status.Errorf(codes.InvalidArgument,
			"workload spans up to %d ticks, limit is %d", span, s.config.MaxTicks)
	}

	schemes := s.config.Schemes
	if list := fields["schemes"].GetListValue(); list != nil && len(list.GetValues()) > 0 {
		schemes = make([]types.SchemeID, 0, len(list.GetValues()))
		for _, v := range list.GetValues() {
			schemes = append(schemes, types.SchemeID(v.GetStringValue()))
		}
	}

	ctrl, err := controller.NewController(controller.Config{
		Schemes:     schemes,
		Parallelism: s.config.Parallelism,
		Metrics:     s.config.Metrics,
		Logger:      s.log,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	batch, err := ctrl.Run(ctx, tasks)
	if err != nil {
		return nil, toStatus(err)
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, batch.Results); err != nil {
		return nil, status.Errorf(codes.Internal, "render report: %v", err)
	}

	resp := SimulateResponse{
		RunID:    batch.RunID,
		Results:  batch.Results,
		Averages: make(map[types.SchemeID]types.Averages, len(batch.Results)),
		Report:   buf.String(),
	}
	for _, r := range batch.Results {
		resp.Averages[r.Scheme] = report.Summarize(r.Tasks)
	}

	s.log.Info("Simulate served",
		"run_id", batch.RunID,
		"tasks", len(tasks),
		"schemes", len(batch.Results))

	return toStruct(resp)
}

// horizon bounds the final tick of any run: every task has arrived by the
// latest arrival and the CPU is busy at most the total service afterwards.
func horizon(tasks []types.Task) int64 {
	var latest, service int64
	for _, t := range tasks {
		latest = max(latest, int64(t.ArrivalMoment))
		service += int64(t.ServiceDuration)
	}
	return latest + service
}

// ListSchemes returns the predefined schemes and their per-tier policies.
func (s *Server) ListSchemes(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	schemes := make([]interface{}, 0, 3)
	for _, sc := range engine.Schemes() {
		levels := make([]interface{}, 0, len(sc.Levels))
		for _, lvl := range sc.Levels {
			levels = append(levels, lvl.String())
		}
		schemes = append(schemes, map[string]interface{}{
			"id":          string(sc.ID),
			"description": sc.Description(),
			"levels":      levels,
		})
	}

	out, err := structpb.NewStruct(map[string]interface{}{"schemes": schemes})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode schemes: %v", err)
	}
	return out, nil
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case engine.IsConfigError(err),
		errors.Is(err, engine.ErrInvalidWorkload),
		errors.Is(err, controller.ErrNoSchemes):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// toStruct converts v to a structpb.Struct through its JSON form.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// fromStruct decodes st into v through its JSON form.
func fromStruct(st *structpb.Struct, v interface{}) error {
	raw, err := json.Marshal(st.AsMap())
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// NewGRPCServer returns a grpc.Server with s registered behind the logging
// and rate-limit interceptors. limit <= 0 disables rate limiting.
func NewGRPCServer(s *Server, limit float64, burst int, opts ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{LoggingInterceptor(s.log)}
	if limit > 0 {
		interceptors = append(interceptors, RateLimitInterceptor(limit, burst))
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(interceptors...))

	gs := grpc.NewServer(opts...)
	RegisterSimulatorServer(gs, s)
	return gs
}
