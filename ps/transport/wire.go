package transport

import (
	"context"

	"github.com/golang/protobuf/proto"
	"google.golang.org/grpc"

	"github.com/pingcap-incubator/tinyps/ps/kvpairs"
	"github.com/pingcap-incubator/tinyps/ps/sarray"
)

// WireMessage is the proto encoding of Message. The struct is marshaled
// through the protobuf struct tags; the wire format matches
//
//	message WireMessage {
//	  uint64 app_id = 1;        uint64 customer_id = 2;
//	  uint64 sender = 3;        uint64 recver = 4;
//	  int32 timestamp = 5;      int32 cmd = 6;
//	  bool push = 7;            bool request = 8;
//	  repeated uint64 keys = 9; repeated float vals = 10;
//	  repeated int32 lens = 11; bool has_payload = 12;
//	}
type WireMessage struct {
	AppId      uint64    `protobuf:"varint,1,opt,name=app_id,proto3" json:"app_id,omitempty"`
	CustomerId uint64    `protobuf:"varint,2,opt,name=customer_id,proto3" json:"customer_id,omitempty"`
	Sender     uint64    `protobuf:"varint,3,opt,name=sender,proto3" json:"sender,omitempty"`
	Recver     uint64    `protobuf:"varint,4,opt,name=recver,proto3" json:"recver,omitempty"`
	Timestamp  int32     `protobuf:"varint,5,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	Cmd        int32     `protobuf:"varint,6,opt,name=cmd,proto3" json:"cmd,omitempty"`
	Push       bool      `protobuf:"varint,7,opt,name=push,proto3" json:"push,omitempty"`
	Request    bool      `protobuf:"varint,8,opt,name=request,proto3" json:"request,omitempty"`
	Keys       []uint64  `protobuf:"varint,9,rep,packed,name=keys,proto3" json:"keys,omitempty"`
	Vals       []float32 `protobuf:"fixed32,10,rep,packed,name=vals,proto3" json:"vals,omitempty"`
	Lens       []int32   `protobuf:"varint,11,rep,packed,name=lens,proto3" json:"lens,omitempty"`
	HasPayload bool      `protobuf:"varint,12,opt,name=has_payload,proto3" json:"has_payload,omitempty"`
}

func (m *WireMessage) Reset()         { *m = WireMessage{} }
func (m *WireMessage) String() string { return proto.CompactTextString(m) }
func (*WireMessage) ProtoMessage()    {}

// DeliverAck closes a delivery stream.
type DeliverAck struct{}

func (m *DeliverAck) Reset()         { *m = DeliverAck{} }
func (m *DeliverAck) String() string { return proto.CompactTextString(m) }
func (*DeliverAck) ProtoMessage()    {}

func toWire(msg *Message) *WireMessage {
	return &WireMessage{
		AppId:      msg.Meta.AppID,
		CustomerId: msg.Meta.CustomerID,
		Sender:     msg.Meta.Sender,
		Recver:     msg.Meta.Recver,
		Timestamp:  msg.Meta.Timestamp,
		Cmd:        msg.Meta.Cmd,
		Push:       msg.Meta.Push,
		Request:    msg.Meta.Request,
		Keys:       msg.Data.Keys,
		Vals:       msg.Data.Vals,
		Lens:       msg.Data.Lens,
		HasPayload: !msg.Data.Empty(),
	}
}

func fromWire(w *WireMessage) *Message {
	msg := &Message{
		Meta: Meta{
			AppID:      w.AppId,
			CustomerID: w.CustomerId,
			Sender:     w.Sender,
			Recver:     w.Recver,
			Timestamp:  w.Timestamp,
			Cmd:        w.Cmd,
			Push:       w.Push,
			Request:    w.Request,
		},
	}
	if w.HasPayload {
		msg.Data = kvpairs.KVPairs{
			Keys: sarray.Keys(w.Keys),
			Vals: sarray.Vals(w.Vals),
			Lens: sarray.Lens(w.Lens),
		}
	}
	return msg
}

// Hand-rolled service bindings for the delivery stream; the shapes follow
// what protoc-gen-go emits for a client-streaming method.

type PSClient interface {
	Deliver(ctx context.Context, opts ...grpc.CallOption) (PS_DeliverClient, error)
}

type psClient struct {
	cc *grpc.ClientConn
}

func NewPSClient(cc *grpc.ClientConn) PSClient {
	return &psClient{cc}
}

func (c *psClient) Deliver(ctx context.Context, opts ...grpc.CallOption) (PS_DeliverClient, error) {
	stream, err := c.cc.NewStream(ctx, &_PS_serviceDesc.Streams[0], "/tinyps.PS/Deliver", opts...)
	if err != nil {
		return nil, err
	}
	return &psDeliverClient{stream}, nil
}

type PS_DeliverClient interface {
	Send(*WireMessage) error
	CloseAndRecv() (*DeliverAck, error)
	grpc.ClientStream
}

type psDeliverClient struct {
	grpc.ClientStream
}

func (x *psDeliverClient) Send(m *WireMessage) error {
	return x.ClientStream.SendMsg(m)
}

func (x *psDeliverClient) CloseAndRecv() (*DeliverAck, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(DeliverAck)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type PSServer interface {
	Deliver(PS_DeliverServer) error
}

func RegisterPSServer(s *grpc.Server, srv PSServer) {
	s.RegisterService(&_PS_serviceDesc, srv)
}

func _PS_Deliver_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(PSServer).Deliver(&psDeliverServer{stream})
}

type PS_DeliverServer interface {
	SendAndClose(*DeliverAck) error
	Recv() (*WireMessage, error)
	grpc.ServerStream
}

type psDeliverServer struct {
	grpc.ServerStream
}

func (x *psDeliverServer) SendAndClose(m *DeliverAck) error {
	return x.ServerStream.SendMsg(m)
}

func (x *psDeliverServer) Recv() (*WireMessage, error) {
	m := new(WireMessage)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

var _PS_serviceDesc = grpc.ServiceDesc{
	ServiceName: "tinyps.PS",
	HandlerType: (*PSServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Deliver",
			Handler:       _PS_Deliver_Handler,
			ClientStreams: true,
		},
	},
	Metadata: "tinyps.proto",
}
