package rpc

import (
	"WindowSpectra/internal/codec"
	"WindowSpectra/internal/engine/manager"
	"WindowSpectra/internal/model"
	"WindowSpectra/internal/store"
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server implements FeatureServiceServer on top of a manager and a session store.
type Server struct {
	UnimplementedFeatureServiceServer
	manager *manager.Manager
	store   *store.Store // optional, enables the session methods
}

// NewServer creates a Server. st may be nil.
func NewServer(m *manager.Manager, st *store.Store) *Server {
	return &Server{manager: m, store: st}
}

func (s *Server) Health(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log.Println("Received Health request")
	return structpb.NewStruct(map[string]any{
		"status":      "ok",
		"window_size": s.manager.WindowSize(),
	})
}

func (s *Server) ListSessions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "session store is not configured")
	}
	f := req.GetFields()
	statusFilter := f["status"].GetStringValue()
	limit := int(f["limit"].GetNumberValue())
	offset := int(f["offset"].GetNumberValue())
	log.Printf("Received ListSessions request, status: %q, limit: %d, offset: %d", statusFilter, limit, offset)

	sessions, err := s.store.ListSessions(ctx, statusFilter, limit, offset)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return codec.ToStruct(map[string]any{"sessions": sessions})
}

func (s *Server) ExtractWindows(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	path := req.GetFields()["pcap_path"].GetStringValue()
	if path == "" {
		return status.Error(codes.InvalidArgument, "pcap_path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return status.Errorf(codes.NotFound, "capture %s: %v", path, err)
	}

	sessionID := uuid.NewString()
	log.Printf("Received ExtractWindows request for %s, session: %s", path, sessionID)

	windowID := 0
	packets, err := s.manager.StreamFile(stream.Context(), path, func(rec model.WindowFeatureRecord) error {
		windowID++
		msg, err := codec.EnvelopeToStruct(codec.Envelope{
			SessionID: sessionID,
			Source:    path,
			WindowID:  windowID,
			Record:    rec,
		})
		if err != nil {
			return err
		}
		return stream.Send(msg)
	})
	if err != nil {
		return toStatus(err)
	}
	log.Printf("Streamed %d windows from %d packets for session %s", windowID, packets, sessionID)
	return nil
}

func (s *Server) SessionWindows(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	if s.store == nil {
		return status.Error(codes.FailedPrecondition, "session store is not configured")
	}
	sessionID := req.GetFields()["session_id"].GetStringValue()
	if sessionID == "" {
		return status.Error(codes.InvalidArgument, "session_id is required")
	}

	ctx := stream.Context()
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return toStatus(err)
	}
	rows, err := s.store.ListWindows(ctx, sessionID, 0, 0)
	if err != nil {
		return toStatus(err)
	}
	for i := range rows {
		rec, err := rows[i].Record()
		if err != nil {
			return toStatus(err)
		}
		msg, err := codec.EnvelopeToStruct(codec.Envelope{
			SessionID: sessionID,
			Source:    session.Filename,
			WindowID:  rows[i].WindowID,
			Record:    rec,
		})
		if err != nil {
			return toStatus(err)
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// toStatus maps internal errors to gRPC status errors.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("extraction failed: %v", err))
	}
}
