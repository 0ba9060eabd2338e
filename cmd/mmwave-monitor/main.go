// Command mmwave-monitor runs the radar driver against a serial port (or
// an in-memory simulator), logs every decoded event, and optionally
// mirrors the presence state into Redis.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	mmwave "github.com/behrlich/go-mmwave"
	"github.com/behrlich/go-mmwave/internal/logging"
)

// Configuration flags
var (
	serialDevice = flag.String("serial", "/dev/ttyUSB0", "Serial device path")
	baudRate     = flag.Int("baud", 115200, "Serial baud rate")
	redisAddr    = flag.String("redis-addr", "", "Redis server address (empty disables publishing)")
	redisPass    = flag.String("redis-pass", "", "Redis password")
	redisDB      = flag.Int("redis-db", 0, "Redis database number")
	heartbeat    = flag.Duration("heartbeat", 30*time.Second, "Heartbeat inquiry interval (0 disables)")
	simulate     = flag.Bool("simulate", false, "Run against an in-memory module simulator")
	debug        = flag.Bool("debug", false, "Enable driver debug logging")
)

// Redis keys
const (
	KeyRadar     = "mmwave"
	ChannelRadar = "mmwave"
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting mmWave monitor")

	cfg := mmwave.DefaultConfig(*serialDevice)
	cfg.BaudRate = *baudRate

	var mock *mmwave.MockPort
	if *simulate {
		mock = mmwave.NewMockPort()
		cfg.Port = mock
		log.Printf("Simulation mode: using in-memory module")
	} else {
		log.Printf("Serial device: %s @ %d baud", *serialDevice, *baudRate)
	}

	ctx := context.Background()
	var rdb *redis.Client
	if *redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     *redisAddr,
			Password: *redisPass,
			DB:       *redisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		log.Printf("Connected to Redis at %s", *redisAddr)
	}

	level := logging.LevelInfo
	if *debug {
		level = logging.LevelDebug
	}
	opts := &mmwave.Options{Logger: logging.NewLogger(&logging.Config{Level: level})}

	drv := mmwave.New(cfg, opts)
	if err := drv.Init(); err != nil {
		log.Fatalf("Driver init failed: %v", err)
	}
	if err := drv.Start(); err != nil {
		log.Fatalf("Driver start failed: %v", err)
	}
	log.Printf("Driver running")

	drv.RegisterEventCallbacks(
		func(res mmwave.Response) {
			log.Printf("Response type=%d data=%x", res.Type, res.Data)
		},
		func(rep mmwave.Report) {
			logReport(rep)
			if rdb != nil {
				publishReport(ctx, rdb, rep)
			}
		},
	)

	stopCh := make(chan struct{})
	if *heartbeat > 0 {
		go heartbeatLoop(drv, *heartbeat, stopCh)
	}
	if mock != nil {
		go simulatorLoop(mock, stopCh)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("Shutting down...")
	close(stopCh)
	if err := drv.Stop(); err != nil {
		log.Printf("Driver stop failed: %v", err)
	}
	snap := drv.Metrics().Snapshot()
	log.Printf("Session: %d bytes in, %d frames parsed, %d reports, %d responses, drop rate %.1f%%",
		snap.RxBytes, snap.FramesParsed, snap.Reports, snap.Responses, snap.DropRate)
	if err := drv.Deinit(); err != nil {
		log.Printf("Driver deinit failed: %v", err)
	}
}

func heartbeatLoop(drv *mmwave.Driver, every time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := drv.InquiryHeartbeat(); err != nil {
				log.Printf("Heartbeat inquiry failed: %v", err)
			}
		}
	}
}

// simulatorLoop plays the module's side on the mock port: a presence or
// motion report every second, alternating occupancy every ten.
func simulatorLoop(mock *mmwave.MockPort, stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	tick := 0
	mock.InjectFrame(0x05, 0x01, []byte{0x0F}) // init completed
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			tick++
			occupied := byte(0x00)
			if tick%20 < 10 {
				occupied = 0x01
			}
			if tick%2 == 0 {
				mock.InjectFrame(0x80, 0x01, []byte{occupied})
			} else {
				mock.InjectFrame(0x80, 0x02, []byte{occupied})
			}
		}
	}
}

func logReport(rep mmwave.Report) {
	switch rep.Kind {
	case mmwave.ReportInitCompleted:
		log.Printf("Report: module initialization completed")
	case mmwave.ReportPresence:
		log.Printf("Report: presence=%d", rep.Presence)
	case mmwave.ReportMotion:
		log.Printf("Report: motion=%d", rep.Motion)
	case mmwave.ReportBodyMovement:
		log.Printf("Report: body movement=%d", rep.BodyMovement)
	case mmwave.ReportProximity:
		log.Printf("Report: proximity=%d", rep.Proximity)
	case mmwave.ReportUof:
		log.Printf("Report: uof existence=%d static=%.1fm motion=%d distance=%.1fm speed=%.1fm/s",
			rep.Uof.ExistenceEnergy, rep.Uof.StaticDistance,
			rep.Uof.MotionEnergy, rep.Uof.MotionDistance, rep.Uof.MotionSpeed)
	}
}

// publishReport mirrors the report into a Redis hash and notifies
// subscribers on the pub/sub channel.
func publishReport(ctx context.Context, rdb *redis.Client, rep mmwave.Report) {
	var field string
	var value interface{}
	switch rep.Kind {
	case mmwave.ReportPresence:
		field = "presence"
		value = int(rep.Presence)
	case mmwave.ReportMotion:
		field = "motion"
		value = int(rep.Motion)
	case mmwave.ReportBodyMovement:
		field = "body-movement"
		value = int(rep.BodyMovement)
	case mmwave.ReportProximity:
		field = "proximity"
		value = int(rep.Proximity)
	default:
		return
	}
	if err := rdb.HSet(ctx, KeyRadar, field, value).Err(); err != nil {
		log.Printf("Redis HSET failed: %v", err)
		return
	}
	if err := rdb.Publish(ctx, ChannelRadar, field).Err(); err != nil {
		log.Printf("Redis PUBLISH failed: %v", err)
	}
}
