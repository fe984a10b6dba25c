package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/core/parser"
	"github.com/joseph-ayodele/blotter-tracker/internal/pipeline"
)

const BlotterServiceName = "blotter.v1.BlotterService"

// BlotterServer is the gRPC surface. Requests and replies are Structs so the
// service needs no generated code.
type BlotterServer interface {
	ParseText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	IngestText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(BlotterServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BlotterServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + BlotterServiceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(BlotterServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var blotterServiceDesc = grpc.ServiceDesc{
	ServiceName: BlotterServiceName,
	HandlerType: (*BlotterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ParseText", Handler: unaryHandler("ParseText", BlotterServer.ParseText)},
		{MethodName: "IngestText", Handler: unaryHandler("IngestText", BlotterServer.IngestText)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "blotter/v1/blotter.proto",
}

// RegisterBlotterServer registers srv on s.
func RegisterBlotterServer(s grpc.ServiceRegistrar, srv BlotterServer) {
	s.RegisterService(&blotterServiceDesc, srv)
}

type TextProcessor interface {
	ProcessText(ctx context.Context, doc pipeline.TextDocument) (*pipeline.Result, error)
}

type GRPCService struct {
	processor TextProcessor
	logger    *slog.Logger
	now       func() time.Time
}

func NewGRPCService(processor TextProcessor, logger *slog.Logger) *GRPCService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCService{processor: processor, logger: logger, now: time.Now}
}

func stringField(s *structpb.Struct, name string) string {
	if v, ok := s.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

// toStruct converts a JSON-tagged value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// ParseText parses {text, source} without storing anything.
func (s *GRPCService) ParseText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text := stringField(req, "text")
	source := stringField(req, "source")
	v := common.NewValidator().
		Field("text", text, common.Required).
		Field("source", source, common.MaxLength(255))
	if err := v.Error(); err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}

	res := parser.ParseDocumentText(text, parser.Options{
		Now:    s.now,
		Logger: common.LoggerFromContext(ctx, s.logger),
		Source: source,
	})
	out, err := toStruct(res)
	if err != nil {
		return nil, common.InternalErrorf("encode parse result: %v", err)
	}
	return out, nil
}

// IngestText parses and stores {text, source, sender_email, county, filename}.
func (s *GRPCService) IngestText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doc := pipeline.TextDocument{
		Text:     stringField(req, "text"),
		Source:   stringField(req, "source"),
		County:   stringField(req, "county"),
		Filename: stringField(req, "filename"),
	}
	if sender := stringField(req, "sender_email"); sender != "" {
		doc.SenderEmail = &sender
	}
	v := common.NewValidator().
		Field("text", doc.Text, common.Required).
		Field("county", doc.County, common.MaxLength(64))
	if err := v.Error(); err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}

	res, err := s.processor.ProcessText(ctx, doc)
	if err != nil {
		return nil, common.GRPCError(err)
	}
	out, err := toStruct(newIngestResponse(res))
	if err != nil {
		return nil, common.InternalErrorf("encode ingest result: %v", err)
	}
	return out, nil
}

// UnaryServerInterceptor attaches a request ID and logger to the context,
// logs each call and maps plain errors to status codes.
func UnaryServerInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("x-request-id"); len(vals) > 0 {
				id = vals[0]
			}
		}
		if id == "" {
			id = common.NewRequestID()
		}
		ctx = common.WithLogger(common.WithRequestID(ctx, id), logger)

		resp, err := handler(ctx, req)
		err = common.GRPCError(err)
		logger.Info("grpc.request",
			"req_id", id,
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// NewGRPCServer builds a server with the blotter service, health and reflection.
func NewGRPCServer(svc BlotterServer, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(UnaryServerInterceptor(logger))}, opts...)
	s := grpc.NewServer(opts...)
	RegisterBlotterServer(s, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(BlotterServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(s)
	return s
}

var _ BlotterServer = (*GRPCService)(nil)
