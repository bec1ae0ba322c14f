package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghjm/tunlink/internal/version"
	"github.com/ghjm/tunlink/pkg/config"
	"github.com/ghjm/tunlink/pkg/driver"
	"github.com/ghjm/tunlink/pkg/driver/memdriver"
	"github.com/ghjm/tunlink/pkg/session"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func errExit(err error) {
	fmt.Printf("Error: %s\n", err)
	os.Exit(1)
}

var rootCmd = &cobra.Command{
	Use:   "tunlink",
	Short: "Session layer test harness for virtual NIC packet drivers",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tunlink version %s\n", version.Version())
	},
}

func setLogLevel(logLevel string) {
	switch logLevel {
	case "":
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	default:
		errExit(fmt.Errorf("invalid log level"))
	}
}

var configFile string
var logLevel string
var loopbackCmd = &cobra.Command{
	Use:     "loopback",
	Short:   "Run a concurrent send/receive soak over the in-memory loopback driver",
	Args:    cobra.NoArgs,
	Version: version.Version(),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Default()
		if configFile != "" {
			var err error
			cfg, err = config.LoadConfig(configFile)
			if err != nil {
				errExit(err)
			}
		}
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		setLogLevel(logLevel)

		d := memdriver.New()
		driver.SetDefaultLoggerIfUnset(d)
		v := d.RunningVersion()
		log.Infof("loopback driver version %d.%d", v>>16, v&0xFFFF)
		sess := session.New(d, d.Open(cfg.Loopback.RingCapacity))
		defer func() {
			_ = sess.Close()
		}()

		stopping := &atomic.Bool{}
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		defer signal.Stop(sigCh)
		go func() {
			_, ok := <-sigCh
			if !ok {
				return
			}
			log.Warnf("interrupt received, shutting down")
			stopping.Store(true)
			sess.Shutdown()
		}()

		total := int64(cfg.Loopback.Packets)
		var sent, received int64
		wg := sync.WaitGroup{}
		for i := 0; i < cfg.Loopback.Receivers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					p, err := sess.ReceiveBlocking()
					if err != nil {
						if !errors.Is(err, session.ErrCancelled) {
							log.Errorf("receive error: %s", err)
						}
						return
					}
					atomic.AddInt64(&received, 1)
					p.Release()
				}
			}()
		}
		start := time.Now()
		sendWG := sync.WaitGroup{}
		for i := 0; i < cfg.Loopback.Senders; i++ {
			sendWG.Add(1)
			go func(worker int) {
				defer sendWG.Done()
				for atomic.AddInt64(&sent, 1) <= total && !stopping.Load() {
					p, err := allocateWithRetry(sess, cfg.Loopback.PacketSize, stopping)
					if err != nil {
						log.Errorf("allocation error: %s", err)
						return
					}
					if p == nil {
						return
					}
					fillPacket(p.Bytes(), worker)
					err = sess.SendPacket(p)
					if err != nil {
						log.Errorf("send error: %s", err)
						return
					}
				}
			}(i)
		}
		sendWG.Wait()
		for atomic.LoadInt64(&received) < total && !stopping.Load() {
			time.Sleep(time.Millisecond)
		}
		sess.Shutdown()
		wg.Wait()
		elapsed := time.Since(start)
		log.Infof("looped %d packets of %d bytes in %s (%.0f pkt/s)",
			total, cfg.Loopback.PacketSize, elapsed, float64(total)/elapsed.Seconds())
	},
}

// allocateWithRetry retries allocation on driver backpressure, which clears as the receivers
// drain packets.  It returns (nil, nil) if a shutdown arrives while retrying.
func allocateWithRetry(sess *session.Session, size int, stopping *atomic.Bool) (*session.Packet, error) {
	for !stopping.Load() {
		p, err := sess.AllocateSendPacket(size)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, session.ErrAllocationFailed) {
			return nil, err
		}
		time.Sleep(time.Millisecond)
	}
	return nil, nil
}

func fillPacket(buf []byte, worker int) {
	for i := range buf {
		buf[i] = byte(worker + i)
	}
}

func main() {
	loopbackCmd.Flags().StringVarP(&configFile, "config", "c", "", "Config file")
	loopbackCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Set log level (error/warning/info/debug)")
	rootCmd.AddCommand(versionCmd, loopbackCmd)
	err := rootCmd.Execute()
	if err != nil {
		errExit(err)
	}
}
