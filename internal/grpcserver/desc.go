package grpcserver

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype of the JSON codec.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// ServiceDesc describes MatchService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetMatch", MatchServiceServer.GetMatch),
		unary("ListMatches", MatchServiceServer.ListMatches),
		unary("ActOnMatch", MatchServiceServer.ActOnMatch),
		unary("FavoriteMatch", MatchServiceServer.FavoriteMatch),
		unary("ScanCV", MatchServiceServer.ScanCV),
		unary("ScanJob", MatchServiceServer.ScanJob),
		unary("Score", MatchServiceServer.Score),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "match_service",
}

// unary adapts a typed method to a grpc.MethodDesc.
func unary[Req, Resp any](name string, call func(MatchServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			s := srv.(MatchServiceServer)
			if interceptor == nil {
				resp, err := call(s, ctx, req)
				return resp, err
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
				resp, err := call(s, ctx, r.(*Req))
				return resp, err
			})
		},
	}
}
