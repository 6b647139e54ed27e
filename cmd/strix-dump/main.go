package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/strix-photonics/strix-sdk-go/pointcloud"
	"github.com/strix-photonics/strix-sdk-go/sensorerr"
	"github.com/strix-photonics/strix-sdk-go/strixsdk"
)

var (
	port        = flag.Int("port", strixsdk.DefaultPort, "UDP destination port of sensor packets in the capture")
	csvFile     = flag.String("csv", "", "Write points to this CSV file")
	ascFile     = flag.String("asc", "", "Write points to this ASC (x y z intensity) file")
	pngFile     = flag.String("png", "", "Render a top-down scatter of the cloud to this PNG file")
	frameMode   = flag.String("frame-mode", "streaming", "Frame aggregation: streaming, timed, cover or cycle")
	frameLength = flag.Float64("frame-length", 0, "Frame length in seconds (timed mode only)")
	allReturns  = flag.Bool("all-returns", false, "Keep every return per measurement instead of the strongest")
	yawDeg      = flag.Float64("yaw", 0, "Rotate the cloud about Z by this many degrees before export")
	offset      = flag.String("offset", "", "Translate the cloud by x,y,z meters after rotation")
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

func transformFromFlags() (pointcloud.Transform, error) {
	off, err := parseOffset(*offset)
	if err != nil {
		return pointcloud.Transform{}, err
	}
	return pointcloud.NewTransform(*yawDeg*math.Pi/180, r3.Vec{Z: 1}, off), nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: strix-dump [flags] <capture.pcap>\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Replays a sensor capture through the SDK and exports the decoded point cloud.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	capturePath := flag.Arg(0)

	if *csvFile == "" && *ascFile == "" && *pngFile == "" {
		log.Fatal("nothing to do: give at least one of -csv, -asc or -png")
	}

	frameOpts, err := frameOptionsFromFlags()
	if err != nil {
		log.Fatal(err)
	}
	tf, err := transformFromFlags()
	if err != nil {
		log.Fatal(err)
	}
	control := strixsdk.ControlDisableNetwork
	if *allReturns {
		control |= strixsdk.ControlEnableMultipleReturns
	}

	sdk, err := strixsdk.Initialize(strixsdk.Version, strixsdk.Options{
		Port:    *port,
		Control: control,
		Frame:   frameOpts,
	}, func(h strixsdk.Handle, cerr *sensorerr.Error) {
		log.Printf("Sensor %s: %v", h, cerr)
	})
	if err != nil {
		log.Fatalf("Failed to initialize SDK: %v", err)
	}

	col := newPointCollector()
	if cerr := sdk.ListenImageFrames(col.collect); cerr != nil {
		log.Fatalf("Failed to register frame callback: %v", cerr)
	}

	rp := sdk.Replay()
	if cerr := rp.Open(capturePath); cerr != nil {
		log.Fatalf("Failed to open capture %s: %v", capturePath, cerr)
	}
	length := rp.Length()
	log.Printf("Replaying %s (%.1fs of capture)", capturePath, length)
	if cerr := rp.ResumeBlocking(length + 1); cerr != nil {
		log.Fatalf("Replay failed: %v", cerr)
	}

	// Sensor summaries come from the registry, which Close releases.
	n := sdk.SensorCount()
	for i := 0; i < n; i++ {
		info, cerr := sdk.SensorInformationByIndex(i)
		if cerr != nil {
			cerr.Ignore()
			break
		}
		log.Printf("Sensor %s: serial %d, model %s, %d packets, %d points, %d frames",
			info.Handle, info.SerialNumber, info.Model, info.PacketCount, info.PointCount,
			col.frames[info.Handle])
	}

	// Close flushes the partial frame still held by the accumulators.
	if cerr := sdk.Close(); cerr != nil {
		log.Printf("SDK close error: %v", cerr)
	}

	pts := col.merged()
	if len(pts) == 0 {
		log.Fatal("capture produced no valid points")
	}
	tf.ApplyFrame(pts)
	log.Printf("Collected %d points from %d sensors", len(pts), len(col.handles()))

	if *csvFile != "" {
		if err := writeCSV(*csvFile, pts); err != nil {
			log.Fatalf("Failed to write CSV: %v", err)
		}
		log.Printf("Wrote %s", *csvFile)
	}
	if *ascFile != "" {
		if err := writeASC(*ascFile, pts); err != nil {
			log.Fatalf("Failed to write ASC: %v", err)
		}
		log.Printf("Wrote %s", *ascFile)
	}
	if *pngFile != "" {
		if err := writePNG(*pngFile, pts); err != nil {
			log.Fatalf("Failed to render PNG: %v", err)
		}
		log.Printf("Wrote %s", *pngFile)
	}
}
