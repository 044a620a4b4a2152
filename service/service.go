// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cnotch/omafpack/config"
	"github.com/cnotch/omafpack/media"
	"github.com/cnotch/omafpack/packing"
	"github.com/cnotch/omafpack/provider/layout"
	"github.com/cnotch/omafpack/scvp"
	"github.com/cnotch/omafpack/stats"
	"github.com/cnotch/queue"
	"github.com/cnotch/scheduler"
	"github.com/cnotch/xlog"
	"github.com/emitter-io/address"
	"github.com/kelindar/rate"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPort    = 8090
	defaultTLSPort = 443
)

// Service 打包服务对象(服务的入口)
type Service struct {
	context context.Context
	cancel  context.CancelFunc
	logger  *xlog.Logger

	gen     *scvp.Software
	roots   map[uint8]scvp.Handle // 源流的根句柄
	streams *media.Streams

	// packL 串行化帧处理与布局调整
	packL   sync.Mutex
	tracks  map[uint8]*packing.ExtractorTrack // 按视口序号
	arrived map[uint8]map[uint8]bool          // 各轨道当前帧已送达的流

	frames    *queue.SyncQueue
	pending   int32
	queueSize int32
	warns     *rate.Limiter

	http  *http.Server
	https *http.Server

	closeOnce sync.Once
}

// NewService 按当前打包计划创建服务
func NewService(ctx context.Context, l *xlog.Logger) (s *Service, err error) {
	ctx, cancel := context.WithCancel(ctx)
	s = &Service{
		context:   ctx,
		cancel:    cancel,
		logger:    l,
		gen:       scvp.NewSoftware(),
		roots:     make(map[uint8]scvp.Handle),
		streams:   media.NewStreams(),
		tracks:    make(map[uint8]*packing.ExtractorTrack),
		arrived:   make(map[uint8]map[uint8]bool),
		frames:    queue.NewSyncQueue(),
		queueSize: int32(config.QueueSize()),
		warns:     rate.New(10, time.Second),
		http:      new(http.Server),
	}

	plan := layout.Current()
	if err = plan.Validate(); err != nil {
		cancel()
		return nil, err
	}

	for _, def := range plan.Streams {
		root := s.gen.Open()
		s.roots[def.ID] = root
		s.streams.Add(media.NewVideoStream(def.ID, def.Params,
			media.Projection(def.Projection),
			media.CodecHandle(root),
			media.Flow(stats.NewChildFlow(stats.Total))))
	}

	for _, def := range plan.Viewports {
		s.tracks[def.Index] = packing.NewExtractorTrack(def.Index, s.streams, def.Projection, s.gen,
			packing.Layout(def.Layout),
			packing.DstRwpk(def.Rwpk),
			packing.DstCovi(def.Covi),
			packing.Flow(stats.NewChildFlow(stats.Total)))
		s.arrived[def.Index] = make(map[uint8]bool)
	}

	// 设置 http 的Handler
	mux := http.NewServeMux()
	if config.Profile() {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	s.initApis(mux)
	s.http.Handler = mux

	// 定时输出打包统计并存储布局修改
	if interval := config.StatsInterval(); interval > 0 {
		var prev stats.FlowSample
		scheduler.PeriodFunc(interval, interval, func() {
			sample := stats.Total.GetSample()
			delta := sample.Sub(prev)
			prev = sample
			s.logger.Infof("packing stats: frames=%d in=%dB out=%dB failures=%d pending=%d",
				delta.Frames, delta.InBytes, delta.OutBytes, delta.Failures, s.Pending())
			if err := layout.Flush(); err != nil {
				s.logger.Errorf("flush layout failed; %v", err)
			}
		}, "The task of packing statistics and layout storage")
	}

	s.logger.Infof("service configured, %d streams, %d tracks", len(plan.Streams), len(plan.Viewports))
	return s, nil
}

// Listen starts the service.
func (s *Service) Listen() (err error) {
	defer s.Close()
	s.hookSignals()

	addr, err := address.Parse(config.Addr(), defaultPort)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(s.context)

	g.Go(func() error {
		s.process(ctx)
		return nil
	})
	g.Go(func() error {
		return s.serve(s.http, addr, nil)
	})

	// https
	if tlsconf := config.GetTLSConfig(); tlsconf.Enabled() {
		tlsAddr, err := address.Parse(tlsconf.ListenAddr, defaultTLSPort)
		if err != nil {
			return err
		}
		conf, err := tlsconf.Load()
		if err != nil {
			return err
		}
		s.https = &http.Server{Handler: s.http.Handler}
		g.Go(func() error {
			return s.serve(s.https, tlsAddr, conf)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.shutdown()
		return nil
	})

	s.logger.Infof("service started(%s).", config.Version)
	return g.Wait()
}

// serve 在指定地址上提供 http 服务
func (s *Service) serve(srv *http.Server, addr *net.TCPAddr, conf *tls.Config) error {
	s.logger.Infof("starting the listener, addr = %s.", addr.String())

	l, err := net.Listen("tcp", addr.String())
	if err != nil {
		return err
	}
	if conf != nil {
		l = tls.NewListener(l, conf)
	}

	if err = srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server(%s): %w", addr.String(), err)
	}
	return nil
}

// shutdown 停止 http 服务并唤醒处理例程
func (s *Service) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{s.http, s.https} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warnf("http server shutdown; %v", err)
		}
	}
	s.frames.Push(nil)
	s.frames.Signal()
}

// Close closes gracefully the service.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.cancel()

		// 停止计划任务
		for _, job := range scheduler.Jobs() {
			job.Cancel()
		}

		s.packL.Lock()
		for idx, t := range s.tracks {
			if err := t.Close(); err != nil {
				s.logger.Errorf("close track %d; %v", idx, err)
			}
		}
		s.packL.Unlock()

		if err := s.streams.Close(); err != nil {
			s.logger.Errorf("close streams; %v", err)
		}
		for id, h := range s.roots {
			if err := s.gen.Destroy(h); err != nil {
				s.logger.Errorf("destroy root handle of stream %d; %v", id, err)
			}
		}

		// 退出前确保最新数据被存储
		if err := layout.Flush(); err != nil {
			s.logger.Errorf("flush layout failed; %v", err)
		}
		s.logger.Info("service closed")
	})
}

// tracks 创建后不再增减
func (s *Service) track(idx uint8) *packing.ExtractorTrack {
	return s.tracks[idx]
}

func (s *Service) hookSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range c {
			s.onSignal(sig)
		}
	}()
}

// OnSignal will be called when a OS-level signal is received.
func (s *Service) onSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGTERM:
		fallthrough
	case syscall.SIGINT:
		s.logger.Warn(fmt.Sprintf("received signal %s, exiting...", sig.String()))
		s.cancel()
	}
}
