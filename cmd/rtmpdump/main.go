// rtmpdump connects to an RTMP server, plays one stream, and writes the
// received audio/video samples to an FLV-tag-framed file for local
// inspection.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	rtmp "github.com/mntone/rtmpclient"
	"github.com/mntone/rtmpclient/bridge"
)

func main() {
	urlFlag := flag.String("url", "", "rtmp:// URL, e.g. rtmp://host/app")
	streamFlag := flag.String("stream", "", "stream name to play")
	outFlag := flag.String("out", "", "output file (default <stream>.flv)")
	startFlag := flag.Float64("start", rtmp.PlayStartLiveOrRecorded, "NetStream.Play start parameter")
	durationFlag := flag.Float64("duration", rtmp.PlayDurationEntireStream, "NetStream.Play duration parameter")
	flag.Parse()

	if *urlFlag == "" || *streamFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: rtmpdump -url rtmp://host/app -stream name [-out file.flv] [-start n] [-duration n]")
		os.Exit(2)
	}

	out := *outFlag
	if out == "" {
		out = *streamFlag + ".flv"
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		rtmp.LogWarning("could not load .env: " + err.Error())
	}
	cfg := rtmp.LoadConfigFromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *urlFlag, *streamFlag, out, *startFlag, *durationFlag, cfg); err != nil {
		var transportErr *rtmp.TransportError
		var handshakeErr *rtmp.HandshakeFailed
		if errors.As(err, &transportErr) || errors.As(err, &handshakeErr) {
			rtmp.LogError(err)
			os.Exit(1)
		}
		var endOfStream *rtmp.EndOfStream
		if errors.As(err, &endOfStream) {
			os.Exit(0)
		}
		rtmp.LogError(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, rawURL, streamName, outPath string, start, duration float64, cfg rtmp.Config) error {
	uri, err := rtmp.ParseRtmpUri(rawURL)
	if err != nil {
		return err
	}

	connectObject := rtmp.NewConnectObject(uri.App, uri.String())

	nc, err := rtmp.Connect(ctx, uri, connectObject, cfg)
	if err != nil {
		return err
	}
	defer nc.Close()

	stream, err := rtmp.AttachStream(ctx, nc, cfg)
	if err != nil {
		return err
	}
	stream.SetAccessUnitFormat(rtmp.AccessUnitLengthPrefixed)

	var ctrlBridge *bridge.ControlBridge
	if os.Getenv("RTMP_CLIENT_BRIDGE_ENABLE") == "YES" {
		ctrlBridge = bridge.NewControlBridge(bridgeConfigFromEnv())
		ctrlBridge.Attach(nc, stream)
		defer ctrlBridge.Close()
	}

	if err := stream.Play(streamName, start, duration); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(rtmp.FlvFileHeader(true, true)); err != nil {
		return err
	}

	return dumpSamples(ctx, stream, f)
}

func dumpSamples(ctx context.Context, stream *rtmp.NetStream, f *os.File) error {
	audioDone := make(chan error, 1)
	videoDone := make(chan error, 1)

	go func() {
		for {
			sample, err := stream.RequestSample(ctx, rtmp.SampleAudio)
			if err != nil {
				audioDone <- err
				return
			}
			a := sample.(*rtmp.AudioSample)
			if _, err := f.Write(rtmp.EncodeFlvTag(rtmp.FlvTagTypeAudio, a.Data, a.Timestamp)); err != nil {
				audioDone <- err
				return
			}
		}
	}()

	go func() {
		for {
			sample, err := stream.RequestSample(ctx, rtmp.SampleVideo)
			if err != nil {
				videoDone <- err
				return
			}
			v := sample.(*rtmp.VideoSample)
			if _, err := f.Write(rtmp.EncodeFlvTag(rtmp.FlvTagTypeVideo, v.Data, v.DecodeTimestamp)); err != nil {
				videoDone <- err
				return
			}
		}
	}()

	select {
	case err := <-audioDone:
		return err
	case err := <-videoDone:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func bridgeConfigFromEnv() bridge.Config {
	cfg := bridge.Config{
		RedisAddr:          os.Getenv("RTMP_CLIENT_BRIDGE_REDIS_ADDR"),
		RedisPassword:      os.Getenv("RTMP_CLIENT_BRIDGE_REDIS_PASSWORD"),
		RedisChannel:       os.Getenv("RTMP_CLIENT_BRIDGE_REDIS_CHANNEL"),
		RedisTLS:           os.Getenv("RTMP_CLIENT_BRIDGE_REDIS_TLS") == "YES",
		WebsocketURL:       os.Getenv("RTMP_CLIENT_BRIDGE_WS_URL"),
		AuthSecret:         os.Getenv("RTMP_CLIENT_BRIDGE_AUTH_SECRET"),
		MonitorListenAddr:  os.Getenv("RTMP_CLIENT_BRIDGE_MONITOR_ADDR"),
		MonitorTLSCert:     os.Getenv("RTMP_CLIENT_BRIDGE_MONITOR_TLS_CERT"),
		MonitorTLSKey:      os.Getenv("RTMP_CLIENT_BRIDGE_MONITOR_TLS_KEY"),
	}
	if ranges := os.Getenv("RTMP_CLIENT_BRIDGE_MONITOR_ALLOW"); ranges != "" {
		cfg.MonitorAllowedRanges = splitCSV(ranges)
	}
	return cfg
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
