package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"net"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/strix-photonics/strix-sdk-go/capture"
	"github.com/strix-photonics/strix-sdk-go/internal/monitor"
	"github.com/strix-photonics/strix-sdk-go/internal/netio"
	"github.com/strix-photonics/strix-sdk-go/internal/store"
	"github.com/strix-photonics/strix-sdk-go/sensorerr"
	"github.com/strix-photonics/strix-sdk-go/strixsdk"
)

var (
	listen      = flag.String("listen", ":8081", "HTTP listen address")
	udpPort     = flag.Int("udp-port", strixsdk.DefaultPort, "UDP port to listen for sensor packets")
	dbFile      = flag.String("db", "strix_data.db", "Path to the SQLite database file")
	rcvBuf      = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes (default 4MB)")
	logInterval = flag.Int("log-interval", 2, "Statistics logging interval in seconds")
	frameMode   = flag.String("frame-mode", "streaming", "Frame aggregation: streaming, timed, cover or cycle")
	frameLength = flag.Float64("frame-length", 0, "Frame length in seconds (timed mode only)")
	allReturns  = flag.Bool("all-returns", false, "Keep every return per measurement instead of the strongest")
	recordFile  = flag.String("record", "", "Write received packets to this capture file")
	forwardTo   = flag.String("forward", "", "Forward received packets to this UDP address (host:port)")
	replayFile  = flag.String("replay", "", "Replay packets from this capture file on startup")
	replaySpeed = flag.Float64("replay-speed", 1, "Replay speed multiplier")
	replayLoop  = flag.Bool("replay-loop", false, "Restart replay from the beginning at end of capture")
	notes       = flag.String("notes", "", "Free-form note stored with the session record")
)

func frameOptionsFromFlags() (strixsdk.FrameOptions, error) {
	switch *frameMode {
	case "streaming":
		return strixsdk.FrameOptions{Mode: strixsdk.FrameStreaming}, nil
	case "timed":
		if *frameLength <= 0 {
			return strixsdk.FrameOptions{}, fmt.Errorf("timed frame mode requires -frame-length > 0")
		}
		return strixsdk.FrameOptions{Mode: strixsdk.FrameTimed, Length: *frameLength}, nil
	case "cover":
		return strixsdk.FrameOptions{Mode: strixsdk.FrameCover}, nil
	case "cycle":
		return strixsdk.FrameOptions{Mode: strixsdk.FrameCycle}, nil
	}
	return strixsdk.FrameOptions{}, fmt.Errorf("unknown frame mode %q (want streaming, timed, cover or cycle)", *frameMode)
}

// ipFromHandle reconstructs the IPv4 source address a live handle was
// derived from. Mock and none handles carry no address; the capture
// writer substitutes its default for nil.
func ipFromHandle(h strixsdk.Handle) net.IP {
	if h == strixsdk.HandleNone || h.IsMock() {
		return nil
	}
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, uint32(h))
	return ip
}

// packetRecorder serializes capture writes. Packet callbacks can fire
// from the receive loop and the replay pump at the same time.
type packetRecorder struct {
	mu     sync.Mutex
	w      *capture.Writer
	closed bool
}

func (rec *packetRecorder) record(h strixsdk.Handle, tsMicros int64, payload []byte) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.closed {
		return
	}
	ts := time.UnixMicro(tsMicros)
	if err := rec.w.WritePacket(ts, ipFromHandle(h), nil, uint16(*udpPort), uint16(*udpPort), payload); err != nil {
		log.Printf("Capture write failed: %v", err)
	}
}

func (rec *packetRecorder) close() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.closed {
		return 0
	}
	rec.closed = true
	n := rec.w.PacketCount()
	if err := rec.w.Close(); err != nil {
		log.Printf("Capture close failed: %v", err)
	}
	return n
}

// frameCounts tracks frames delivered per sensor. The sensor registry
// counts packets and points but frame boundaries only exist at the
// callback layer.
type frameCounts struct {
	mu     sync.Mutex
	counts map[strixsdk.Handle]uint64
}

func (fc *frameCounts) add(h strixsdk.Handle) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.counts[h]++
}

func (fc *frameCounts) get(h strixsdk.Handle) uint64 {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.counts[h]
}

type sensorSample struct {
	packets uint64
	points  uint64
	frames  uint64
}

// recordTelemetry writes one rate sample per sensor that saw traffic
// since the previous tick.
func recordTelemetry(st *store.Store, sdk *strixsdk.SDK, sessionID string,
	frames *frameCounts, prev map[strixsdk.Handle]sensorSample, interval float64) {
	n := sdk.SensorCount()
	for i := 0; i < n; i++ {
		info, cerr := sdk.SensorInformationByIndex(i)
		if cerr != nil {
			// Registry shrank under a concurrent Clear.
			cerr.Ignore()
			break
		}
		fc := frames.get(info.Handle)
		last := prev[info.Handle]
		dPackets := info.PacketCount - last.packets
		dPoints := info.PointCount - last.points
		dFrames := fc - last.frames
		prev[info.Handle] = sensorSample{packets: info.PacketCount, points: info.PointCount, frames: fc}
		if dPackets == 0 && dFrames == 0 {
			continue
		}
		sample := store.TelemetrySample{
			SessionID:         sessionID,
			Handle:            info.Handle.String(),
			Packets:           info.PacketCount,
			Points:            info.PointCount,
			Frames:            fc,
			PacketRate:        float64(dPackets) / interval,
			PointRate:         float64(dPoints) / interval,
			FrameRate:         float64(dFrames) / interval,
			TemperatureMilliC: info.TemperatureMilliC,
			MotorRPM:          int(info.MotorRPM),
			AtMicros:          time.Now().UnixMicro(),
		}
		if err := st.RecordTelemetry(sample); err != nil {
			log.Printf("Failed to record telemetry for %s: %v", info.Handle, err)
		}
	}
}

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}
	frameOpts, err := frameOptionsFromFlags()
	if err != nil {
		log.Fatal(err)
	}
	var control strixsdk.Control
	if *allReturns {
		control |= strixsdk.ControlEnableMultipleReturns
	}

	st, err := store.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open strix database: %v", err)
	}
	defer st.Close()

	sessionID, err := st.CreateSession(*udpPort, *recordFile, *notes, time.Now().UnixMicro())
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}

	onError := func(h strixsdk.Handle, cerr *sensorerr.Error) {
		log.Printf("Sensor %s: %v", h, cerr)
		err := st.RecordEvent(sessionID, h.String(), int32(cerr.Code()), cerr.Name(), cerr.Msg(),
			time.Now().UnixMicro())
		if err != nil {
			log.Printf("Failed to record sensor event: %v", err)
		}
	}

	sdk, err := strixsdk.Initialize(strixsdk.Version, strixsdk.Options{
		Port:    *udpPort,
		RcvBuf:  *rcvBuf,
		Control: control,
		Frame:   frameOpts,
	}, onError)
	if err != nil {
		log.Fatalf("Failed to initialize SDK: %v", err)
	}
	log.Printf("Strix SDK %s listening for sensor packets on UDP port %d (session %s)",
		strixsdk.VersionString, *udpPort, sessionID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var fwd *netio.Forwarder
	if *forwardTo != "" {
		fwd = netio.NewForwarder(*forwardTo, 1000)
		if err := fwd.Start(ctx); err != nil {
			log.Fatalf("Failed to start packet forwarder: %v", err)
		}
		log.Printf("Forwarding packets to %s", *forwardTo)
	}

	var rec *packetRecorder
	if *recordFile != "" {
		w, err := capture.Create(*recordFile)
		if err != nil {
			log.Fatalf("Failed to create capture file: %v", err)
		}
		rec = &packetRecorder{w: w}
		log.Printf("Recording packets to %s", *recordFile)
	}

	stats := monitor.NewPacketStats()
	frames := &frameCounts{counts: make(map[strixsdk.Handle]uint64)}

	if cerr := sdk.ListenImageFrames(func(h strixsdk.Handle, points []strixsdk.ImagePoint) {
		valid := 0
		for i := range points {
			if points[i].Valid {
				valid++
			}
		}
		stats.AddFrame(valid)
		frames.add(h)
	}); cerr != nil {
		log.Fatalf("Failed to register frame callback: %v", cerr)
	}

	if cerr := sdk.ListenNetworkPackets(func(h strixsdk.Handle, tsMicros int64, payload []byte) {
		stats.AddPacket(len(payload))
		if fwd != nil {
			fwd.ForwardAsync(payload)
		}
		if rec != nil {
			rec.record(h, tsMicros, payload)
		}
	}); cerr != nil {
		log.Fatalf("Failed to register packet callback: %v", cerr)
	}

	if *replayFile != "" {
		rp := sdk.Replay()
		if cerr := rp.Open(*replayFile); cerr != nil {
			log.Fatalf("Failed to open replay capture %s: %v", *replayFile, cerr)
		}
		if *replaySpeed != 1 {
			if cerr := rp.SetSpeed(*replaySpeed); cerr != nil {
				log.Fatalf("Invalid replay speed: %v", cerr)
			}
		}
		rp.SetEnableLoop(*replayLoop)
		if cerr := rp.Resume(); cerr != nil {
			log.Fatalf("Failed to start replay: %v", cerr)
		}
		log.Printf("Replaying %s (%.1fs of capture at %gx)", *replayFile, rp.Length(), rp.Speed())
	}

	var wg sync.WaitGroup

	// Periodic stats logging and telemetry sampling
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Duration(*logInterval) * time.Second)
		defer ticker.Stop()

		prev := make(map[strixsdk.Handle]sensorSample)
		var lastDropped uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if fwd != nil {
					_, dropped := fwd.Stats()
					if d := dropped - lastDropped; d > 0 {
						stats.AddDropped(int64(d))
						lastDropped = dropped
					}
				}
				stats.LogStats()
				recordTelemetry(st, sdk, sessionID, frames, prev, float64(*logInterval))
			}
		}
	}()

	webServer := monitor.NewWebServer(monitor.WebServerConfig{
		Address:   *listen,
		SDK:       sdk,
		Store:     st,
		Stats:     stats,
		SessionID: sessionID,
		UDPPort:   *udpPort,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webServer.Start(ctx); err != nil {
			log.Printf("Web server error: %v", err)
		}
	}()

	wg.Wait()

	if cerr := sdk.Close(); cerr != nil {
		log.Printf("SDK close error: %v", cerr)
	}
	if rec != nil {
		log.Printf("Recorded %s packets to %s", monitor.FormatWithCommas(int64(rec.close())), *recordFile)
	}
	if err := st.EndSession(sessionID, time.Now().UnixMicro()); err != nil {
		log.Printf("Failed to end session: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
