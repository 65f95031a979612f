package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"omdraw/internal/auth"
	"omdraw/internal/config"
	"omdraw/internal/discovery"
	"omdraw/internal/draw"
	"omdraw/internal/eventloop"
	"omdraw/internal/export"
	"omdraw/internal/geometry"
	"omdraw/internal/logger"
	"omdraw/internal/shape"
	"omdraw/internal/syncclient"
)

func runToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	user := fs.String("user", "", "user id (a random guest id if empty)")
	secret := fs.String("secret", cfg.JWTSecret, "signing secret")
	ttl := fs.Duration("ttl", cfg.TokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		return errors.New("no signing secret: set JWT_SECRET or pass -secret")
	}

	id := *user
	if id == "" {
		id = "guest-" + uuid.NewString()
	}

	token, err := auth.NewTokenManager(*secret, *ttl).Generate(id)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// endpoints resolves where to connect. With discover set the first relay
// found on the LAN wins over the configured URLs.
type endpoints struct {
	relay string
	api   string
}

func resolveEndpoints(ctx context.Context, cfg *config.Config, discover bool) (endpoints, error) {
	if !discover {
		return endpoints{relay: cfg.RelayURL, api: cfg.APIURL}, nil
	}

	relays, err := discovery.Browse(ctx, 2*time.Second)
	if err != nil && len(relays) == 0 {
		return endpoints{}, err
	}
	if len(relays) == 0 {
		return endpoints{}, errors.New("no relay found on the local network")
	}
	r := relays[0]
	log := logger.Component("drawctl")
	log.Info().Str("instance", r.Instance).Str("url", r.URL()).Msg("✓ Discovered relay")
	return endpoints{
		relay: r.URL(),
		api:   "http://" + net.JoinHostPort(r.Host, strconv.Itoa(r.Port)),
	}, nil
}

// clientFlags are shared by the commands that join a room.
type clientFlags struct {
	room     *string
	token    *string
	discover *bool
}

func addClientFlags(fs *flag.FlagSet, cfg *config.Config) clientFlags {
	return clientFlags{
		room:     fs.String("room", "", "room slug"),
		token:    fs.String("token", cfg.DrawToken, "credential (DRAW_TOKEN)"),
		discover: fs.Bool("discover", false, "find the relay over mDNS"),
	}
}

// session is a running headless client.
type session struct {
	draw   *draw.Session
	loop   *eventloop.Loop
	client *syncclient.Client
}

func startSession(ctx context.Context, cfg *config.Config, f clientFlags) (*session, error) {
	if *f.room == "" {
		return nil, errors.New("-room is required")
	}
	ep, err := resolveEndpoints(ctx, cfg, *f.discover)
	if err != nil {
		return nil, err
	}

	log := logger.Component("syncclient")
	loop := eventloop.New(256)
	go loop.Run(ctx)

	ds := draw.NewSession(cfg.CanvasWidth, cfg.CanvasHeight, &draw.Headless{})
	client := syncclient.New(syncclient.Config{
		RelayURL:       ep.relay,
		RoomID:         *f.room,
		Token:          *f.token,
		ReconnectDelay: cfg.ReconnectDelay,
		SendBuffer:     cfg.WSSendBuffer,
	}, ds, loop, syncclient.NewHTTPHistory(ep.api, log), syncclient.NewWebSocketDialer(), syncclient.WithLogger(log))

	if err := client.Start(ctx); err != nil {
		loop.Stop()
		return nil, err
	}
	return &session{draw: ds, loop: loop, client: client}, nil
}

func (s *session) close() {
	s.client.Destroy()
	s.loop.Stop()
}

// waitConnected blocks until the client has an open transport.
func (s *session) waitConnected(ctx context.Context, timeout time.Duration) error {
	deadline := time.After(timeout)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if s.client.Status() == syncclient.StatusConnected {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("not connected after %s (status %s)", timeout, s.client.Status())
		case <-tick.C:
		}
	}
}

func runWatch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	cf := addClientFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := startSession(ctx, cfg, cf)
	if err != nil {
		return err
	}
	defer s.close()

	log := logger.Component("drawctl").With().Str("room", *cf.room).Logger()
	seen := 0
	width, height := cfg.CanvasWidth, cfg.CanvasHeight
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Int("shapes", seen).Msg("stopped watching")
			return nil
		case <-tick.C:
		}

		var fresh []shape.Shape
		grown := false
		s.loop.Call(func() {
			shapes := s.draw.Shapes()
			if len(shapes) > seen {
				fresh = shapes[seen:]
				seen = len(shapes)
			}
			width, height, grown = fitCanvas(s.draw, width, height)
		})
		if grown {
			log.Info().Float64("width", width).Float64("height", height).Msg("canvas grown")
		}
		for _, sh := range fresh {
			msg, err := shape.EncodeMessage(sh)
			if err != nil {
				continue
			}
			log.Info().Str("kind", string(sh.Kind())).RawJSON("shape", []byte(msg)).Msg("shape")
		}
	}
}

func runDraw(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("draw", flag.ContinueOnError)
	cf := addClientFlags(fs, cfg)
	toolName := fs.String("tool", string(draw.ToolSquare), "tool to draw with")
	from := fs.String("from", "100,100", "press point x,y")
	to := fs.String("to", "300,200", "release point x,y")
	steps := fs.Int("steps", 8, "intermediate moves between press and release")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tool, err := draw.ParseTool(*toolName)
	if err != nil {
		return err
	}
	start, err := parsePoint(*from)
	if err != nil {
		return err
	}
	end, err := parsePoint(*to)
	if err != nil {
		return err
	}

	s, err := startSession(ctx, cfg, cf)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.waitConnected(ctx, 10*time.Second); err != nil {
		return err
	}

	s.loop.Call(func() {
		s.draw.SetTool(tool)
		s.draw.Begin(start)
		for _, p := range interpolate(start, end, *steps) {
			s.draw.Continue(p)
		}
		s.draw.Commit(end)
	})

	// Give the write pump a moment to flush before closing.
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
	}

	log := logger.Component("drawctl")
	log.Info().
		Str("tool", string(tool)).
		Int("dropped", s.client.Dropped()).
		Msg("✓ Gesture sent")
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	room := fs.String("room", "", "room slug")
	out := fs.String("out", "", "output file (default <room>.pdf)")
	apiURL := fs.String("api", cfg.APIURL, "history API base URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *room == "" {
		return errors.New("-room is required")
	}
	if *out == "" {
		*out = *room + ".pdf"
	}

	history := syncclient.NewHTTPHistory(*apiURL, logger.Component("export"))
	history.Limit = 500
	shapes, err := history.FetchShapes(ctx, *room)
	if err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *out, err)
	}
	if err := export.WritePDF(f, shapes, cfg.CanvasWidth, cfg.CanvasHeight); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	log := logger.Component("drawctl")
	log.Info().Str("file", *out).Int("shapes", len(shapes)).Msg("✓ Exported room")
	return nil
}

// fitCanvas resizes ds when its shapes reach past width x height and returns
// the size in effect. Must run on the session's loop.
func fitCanvas(ds *draw.Session, width, height float64) (float64, float64, bool) {
	w, h := geometry.Cover(ds.Shapes(), width, height)
	if w == width && h == height {
		return width, height, false
	}
	ds.Resize(w, h)
	return w, h, true
}

func parsePoint(s string) (geometry.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geometry.Point{}, fmt.Errorf("point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	return geometry.Point{X: x, Y: y}, nil
}

// interpolate returns n evenly spaced points strictly between a and b.
func interpolate(a, b geometry.Point, n int) []geometry.Point {
	points := make([]geometry.Point, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n+1)
		points = append(points, geometry.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t})
	}
	return points
}
