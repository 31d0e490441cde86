package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// SchemeInfo describes one predefined scheme as returned by ListSchemes.
type SchemeInfo struct {
	ID          types.SchemeID `json:"id"`
	Description string         `json:"description"`
	Levels      []string       `json:"levels"`
}

// Client calls mlfq.v1.Simulator over an existing connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Simulate submits a workload in the line format. With no schemes the
// server's defaults apply.
func (c *Client) Simulate(ctx context.Context, workloadText string, schemes []types.SchemeID, opts ...grpc.CallOption) (*SimulateResponse, error) {
	fields := map[string]interface{}{"workload": workloadText}
	if len(schemes) > 0 {
		list := make([]interface{}, 0, len(schemes))
		for _, s := range schemes {
			list = append(list, string(s))
		}
		fields["schemes"] = list
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, SimulateMethod, req, out, opts...); err != nil {
		return nil, err
	}

	var resp SimulateResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSchemes returns the predefined schemes.
func (c *Client) ListSchemes(ctx context.Context, opts ...grpc.CallOption) ([]SchemeInfo, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, ListSchemesMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}

	var resp struct {
		Schemes []SchemeInfo `json:"schemes"`
	}
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Schemes, nil
}
