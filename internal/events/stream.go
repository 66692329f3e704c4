package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"slices"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Wire names of the event stream service. Requests and records travel as
// google.protobuf.Struct, so no generated code is needed.
const (
	StreamServiceName = "aixavier.events.v1.EventStream"
	subscribeMethod   = "/" + StreamServiceName + "/Subscribe"
)

// EventStreamServer is the server side of the event stream service.
type EventStreamServer interface {
	Subscribe(req *structpb.Struct, stream grpc.ServerStream) error
}

var eventStreamDesc = grpc.ServiceDesc{
	ServiceName: StreamServiceName,
	HandlerType: (*EventStreamServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    "Subscribe",
		Handler:       subscribeHandler,
		ServerStreams: true,
	}},
	Metadata: "aixavier/events/v1/events.proto",
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(EventStreamServer).Subscribe(req, stream)
}

// RegisterEventStreamServer registers srv on s.
func RegisterEventStreamServer(s grpc.ServiceRegistrar, srv EventStreamServer) {
	s.RegisterService(&eventStreamDesc, srv)
}

// Filter selects the records a subscriber receives. Empty fields match
// everything.
type Filter struct {
	Types    []string
	CameraID string
}

func (f Filter) matches(r Record) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, r.Type) {
		return false
	}
	return f.CameraID == "" || f.CameraID == r.CameraID()
}

func (f Filter) toStruct() (*structpb.Struct, error) {
	types := make([]any, len(f.Types))
	for i, t := range f.Types {
		types[i] = t
	}
	return structpb.NewStruct(map[string]any{"types": types, "camera_id": f.CameraID})
}

func filterFromStruct(s *structpb.Struct) Filter {
	var f Filter
	m := s.AsMap()
	if list, ok := m["types"].([]any); ok {
		for _, v := range list {
			if t, ok := v.(string); ok && t != "" {
				f.Types = append(f.Types, t)
			}
		}
	}
	f.CameraID, _ = m["camera_id"].(string)
	return f
}

// ToStruct converts a record to its wire form.
func ToStruct(r Record) (*structpb.Struct, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// FromStruct converts a wire record back to a Record.
func FromStruct(s *structpb.Struct) (Record, error) {
	data, err := protojson.Marshal(s)
	if err != nil {
		return Record{}, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// StreamConfig holds configuration for the event stream server.
type StreamConfig struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50061").
	ListenAddr string

	// QueueSize bounds records waiting for broadcast.
	QueueSize int

	// ClientBuffer bounds records waiting for one slow subscriber.
	ClientBuffer int
}

// DefaultStreamConfig returns a default configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ListenAddr:   "localhost:50061",
		QueueSize:    256,
		ClientBuffer: 64,
	}
}

type subscriber struct {
	filter Filter
	ch     chan Record
}

// StreamPublisher serves the event stream and broadcasts published
// records to every subscriber. Records are dropped rather than blocking
// the pipeline when a queue is full.
type StreamPublisher struct {
	cfg      StreamConfig
	server   *grpc.Server
	listener net.Listener

	queue     chan Record
	clients   map[uint64]*subscriber
	clientsMu sync.RWMutex
	nextID    atomic.Uint64

	published   atomic.Uint64
	dropped     atomic.Uint64
	clientCount atomic.Int32

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewStreamPublisher creates a publisher; call Start or Serve to accept
// subscribers.
func NewStreamPublisher(cfg StreamConfig) *StreamPublisher {
	def := DefaultStreamConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = def.ClientBuffer
	}
	return &StreamPublisher{
		cfg:     cfg,
		queue:   make(chan Record, cfg.QueueSize),
		clients: make(map[uint64]*subscriber),
		stopCh:  make(chan struct{}),
	}
}

// Start listens on the configured address and serves in the background.
func (p *StreamPublisher) Start() error {
	lis, err := net.Listen("tcp", p.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return p.Serve(lis)
}

// Serve serves on lis in the background.
func (p *StreamPublisher) Serve(lis net.Listener) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("publisher already running")
	}
	p.listener = lis
	p.server = grpc.NewServer()
	RegisterEventStreamServer(p.server, p)

	p.wg.Add(2)
	go p.broadcastLoop()
	go func() {
		defer p.wg.Done()
		opsf("event stream listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			opsf("event stream server error: %v", err)
		}
	}()
	return nil
}

// Stop ends every subscription and shuts the server down.
func (p *StreamPublisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.stopCh)
	if p.server != nil {
		p.server.GracefulStop()
	}
	p.wg.Wait()
	opsf("event stream stopped")
}

// Publish queues r for broadcast. It never blocks.
func (p *StreamPublisher) Publish(_ context.Context, r Record) error {
	if !p.running.Load() {
		return nil
	}
	r.EnsureID()
	select {
	case p.queue <- r.Clone():
		p.published.Add(1)
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			opsf("event stream queue full, dropped %d records", n)
		}
	}
	return nil
}

func (p *StreamPublisher) broadcastLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case r := <-p.queue:
			p.clientsMu.RLock()
			for _, c := range p.clients {
				if !c.filter.matches(r) {
					continue
				}
				select {
				case c.ch <- r:
				default:
					p.dropped.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

// Subscribe implements EventStreamServer.
func (p *StreamPublisher) Subscribe(req *structpb.Struct, stream grpc.ServerStream) error {
	id := p.nextID.Add(1)
	sub := &subscriber{filter: filterFromStruct(req), ch: make(chan Record, p.cfg.ClientBuffer)}

	p.clientsMu.Lock()
	p.clients[id] = sub
	p.clientsMu.Unlock()
	diagf("subscriber %d connected (total: %d)", id, p.clientCount.Add(1))

	defer func() {
		p.clientsMu.Lock()
		delete(p.clients, id)
		p.clientsMu.Unlock()
		diagf("subscriber %d disconnected (remaining: %d)", id, p.clientCount.Add(-1))
	}()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stopCh:
			return nil
		case r := <-sub.ch:
			msg, err := ToStruct(r)
			if err != nil {
				opsf("encode %s record: %v", r.Type, err)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

// StreamStats contains publisher statistics.
type StreamStats struct {
	Published   uint64
	Dropped     uint64
	ClientCount int32
	Running     bool
}

// Stats returns current publisher statistics.
func (p *StreamPublisher) Stats() StreamStats {
	return StreamStats{
		Published:   p.published.Load(),
		Dropped:     p.dropped.Load(),
		ClientCount: p.clientCount.Load(),
		Running:     p.running.Load(),
	}
}

// Subscription is the client side of one Subscribe call.
type Subscription struct {
	stream grpc.ClientStream
}

// Subscribe opens an event stream on conn.
func Subscribe(ctx context.Context, conn grpc.ClientConnInterface, f Filter) (*Subscription, error) {
	stream, err := conn.NewStream(ctx, &eventStreamDesc.Streams[0], subscribeMethod)
	if err != nil {
		return nil, err
	}
	req, err := f.toStruct()
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Subscription{stream: stream}, nil
}

// Recv blocks for the next record.
func (s *Subscription) Recv() (Record, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		return Record{}, err
	}
	return FromStruct(msg)
}
