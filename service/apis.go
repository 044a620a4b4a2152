// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cnotch/apirouter"
	"github.com/cnotch/omafpack/av/codec/hevc"
	"github.com/cnotch/omafpack/config"
	"github.com/cnotch/omafpack/media"
	"github.com/cnotch/omafpack/omaf"
	"github.com/cnotch/omafpack/packing"
	"github.com/cnotch/omafpack/provider/layout"
	"github.com/cnotch/omafpack/stats"
	"github.com/cnotch/omafpack/utils"
)

var (
	buffers = sync.Pool{
		New: func() interface{} {
			return bytes.NewBuffer(make([]byte, 0, 1024*2))
		},
	}
)

func (s *Service) initApis(mux *http.ServeMux) {
	api := apirouter.NewForGRPC(
		// 系统信息类API
		apirouter.GET("/api/v1/server", s.onGetServerInfo),
		apirouter.GET("/api/v1/runtime", s.onGetRuntime),

		// 源流API
		apirouter.GET("/api/v1/streams", s.onListStreams),
		apirouter.GET("/api/v1/streams/{id=*}", s.onGetStreamInfo),
		apirouter.POST("/api/v1/streams/{id=*}/frames", s.onPostFrame),

		// 提取器轨道API
		apirouter.GET("/api/v1/tracks", s.onListTracks),
		apirouter.GET("/api/v1/tracks/{idx=*}", s.onGetTrackInfo),
		apirouter.GET("/api/v1/tracks/{idx=*}/extractors", s.onGetExtractors),
		apirouter.DELETE("/api/v1/tracks/{idx=*}/extractors", s.onDestroyExtractors),
		apirouter.GET("/api/v1/tracks/{idx=*}/nalus/{name=*}", s.onGetNalu),
		apirouter.POST("/api/v1/tracks/{idx=*}/layout", s.onSaveLayout),
	)

	iterc := apirouter.ChainInterceptor(apirouter.PreInterceptor(localOnlyInterceptor))

	// api add to mux
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if iterc.PreHandle(w, r) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			api.ServeHTTP(w, r)
		}
	})
}

// 修改类请求只允许本机发起
func localOnlyInterceptor(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead || !config.LocalOnly() {
		return true
	}

	if utils.IsLocalhostIP(utils.RemoteIP(r.RemoteAddr)) {
		return true
	}

	http.Error(w, "Forbidden: only local requests may modify the service", http.StatusForbidden)
	return false
}

// 获取服务信息
func (s *Service) onGetServerInfo(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	type server struct {
		Vendor   string `json:"vendor"`
		Name     string `json:"name"`
		Version  string `json:"version"`
		OS       string `json:"os"`
		Arch     string `json:"arch"`
		StartOn  string `json:"start_on"`
		Duration string `json:"duration"`
	}
	srv := server{
		Vendor:   config.Vendor,
		Name:     config.Name,
		Version:  config.Version,
		OS:       strings.Title(runtime.GOOS),
		Arch:     strings.ToUpper(runtime.GOARCH),
		StartOn:  stats.StartingTime.Format(time.RFC3339Nano),
		Duration: time.Now().Sub(stats.StartingTime).String(),
	}

	if err := jsonTo(w, &srv); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// 获取运行时信息
func (s *Service) onGetRuntime(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	const extraKey = "extra"

	type runtime struct {
		On      string           `json:"on"`
		Proc    stats.Proc       `json:"proc"`
		Streams int              `json:"streams"`
		Tracks  int              `json:"tracks"`
		Pending int              `json:"pending"`
		Packing stats.FlowSample `json:"packing"`
		Extra   *stats.Runtime   `json:"extra,omitempty"`
	}

	rt := runtime{
		On:      time.Now().Format(time.RFC3339Nano),
		Proc:    stats.MeasureRuntime(),
		Streams: s.streams.Count(),
		Tracks:  len(s.tracks),
		Pending: s.Pending(),
		Packing: stats.Total.GetSample(),
	}

	params := r.URL.Query()
	if strings.TrimSpace(params.Get(extraKey)) == "1" {
		rt.Extra = stats.MeasureFullRuntime()
	}

	if err := jsonTo(w, &rt); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Service) onListStreams(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	type streamInfos struct {
		Total   int                 `json:"total"`
		Streams []*media.StreamInfo `json:"streams,omitempty"`
	}

	infos := s.streams.Infos()
	list := &streamInfos{
		Total:   len(infos),
		Streams: infos,
	}

	if err := jsonTo(w, list); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Service) onGetStreamInfo(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	id, err := parseID(pathParams.ByName("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stream := s.streams.Get(id)
	if stream == nil {
		http.NotFound(w, r)
		return
	}

	if err := jsonTo(w, stream.Info()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// tileRequest 一个 tile 的编码数据，[]byte 以 base64 传输
type tileRequest struct {
	Data           []byte `json:"data"`
	SliceHeaderLen uint32 `json:"slice_header_len"`
	Left           uint32 `json:"left"`
	Top            uint32 `json:"top"`
	Width          uint32 `json:"width"`
	Height         uint32 `json:"height"`
}

type frameRequest struct {
	Tiles []tileRequest `json:"tiles"`
	VPS   []byte        `json:"vps,omitempty"`
	SPS   []byte        `json:"sps,omitempty"`
	PPS   []byte        `json:"pps,omitempty"`
}

func (s *Service) onPostFrame(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	id, err := parseID(pathParams.ByName("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.streams.Get(id) == nil {
		http.NotFound(w, r)
		return
	}

	var req frameRequest
	body := http.MaxBytesReader(w, r.Body, config.MaxFrameSize())
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := newFrameEvent(id, &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.enqueue(ev); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func newFrameEvent(id uint8, req *frameRequest) (*frameEvent, error) {
	if len(req.Tiles) == 0 {
		return nil, errors.New("frame has no tiles")
	}

	ev := &frameEvent{
		streamID: id,
		tiles:    make([]media.TileInfo, len(req.Tiles)),
	}
	for i, tile := range req.Tiles {
		nalu, err := hevc.ParseNalu(tile.Data)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %v", i, err)
		}
		nalu.SliceHeaderLen = tile.SliceHeaderLen
		ev.tiles[i] = media.TileInfo{
			Nalu:   nalu,
			Left:   tile.Left,
			Top:    tile.Top,
			Width:  tile.Width,
			Height: tile.Height,
		}
	}

	var err error
	if ev.vps, err = parseParameterSet(req.VPS, hevc.NalVps); err != nil {
		return nil, err
	}
	if ev.sps, err = parseParameterSet(req.SPS, hevc.NalSps); err != nil {
		return nil, err
	}
	if ev.pps, err = parseParameterSet(req.PPS, hevc.NalPps); err != nil {
		return nil, err
	}
	return ev, nil
}

func parseParameterSet(data []byte, naluType byte) (*hevc.Nalu, error) {
	if len(data) == 0 {
		return nil, nil
	}
	nalu, err := hevc.ParseNalu(data)
	if err != nil {
		return nil, err
	}
	if nalu.NaluType != naluType {
		return nil, fmt.Errorf("want nal unit type %d, got %d", naluType, nalu.NaluType)
	}
	return nalu, nil
}

func (s *Service) onListTracks(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	type trackInfos struct {
		Total  int                  `json:"total"`
		Tracks []*packing.TrackInfo `json:"tracks,omitempty"`
	}

	list := &trackInfos{Total: len(s.tracks)}
	for i := 0; i <= 255 && len(list.Tracks) < len(s.tracks); i++ {
		if t := s.track(uint8(i)); t != nil {
			list.Tracks = append(list.Tracks, t.Info())
		}
	}

	if err := jsonTo(w, list); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Service) onGetTrackInfo(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	t, ok := s.trackOf(w, r, pathParams)
	if !ok {
		return
	}

	if err := jsonTo(w, t.Info()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type extractorInfo struct {
	TileIdx    uint16 `json:"tile"`
	InlineData []byte `json:"inline_data"`
	InlineLen  uint32 `json:"inline_length"`
	StreamIdx  uint8  `json:"stream"`
	TrackRef   uint16 `json:"track_ref_index"`
	DataOffset uint32 `json:"data_offset"`
	DataLength uint32 `json:"data_length"`
}

func (s *Service) onGetExtractors(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	t, ok := s.trackOf(w, r, pathParams)
	if !ok {
		return
	}

	extractors := t.Extractors()
	infos := make([]extractorInfo, len(extractors))
	for i, e := range extractors {
		infos[i] = extractorInfo{
			TileIdx:    e.TileIdx,
			InlineData: e.Inline.Data[:e.Inline.Length],
			InlineLen:  e.Inline.Length,
			StreamIdx:  e.Sample.StreamIdx,
			TrackRef:   e.Sample.TrackRefIndex,
			DataOffset: e.Sample.DataOffset,
			DataLength: e.Sample.DataLength,
		}
	}

	if err := jsonTo(w, infos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Service) onDestroyExtractors(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	t, ok := s.trackOf(w, r, pathParams)
	if !ok {
		return
	}

	s.packL.Lock()
	err := t.DestroyExtractors()
	s.packL.Unlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) onGetNalu(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	t, ok := s.trackOf(w, r, pathParams)
	if !ok {
		return
	}

	var nalu *hevc.Nalu
	var err error
	switch strings.ToLower(pathParams.ByName("name")) {
	case "vps":
		nalu = t.VPS()
	case "sps":
		nalu = t.SPS()
	case "pps":
		nalu = t.PPS()
	case "projsei":
		nalu, err = t.ProjectionSEI()
	case "rwpksei":
		nalu, err = t.RwpkSEI()
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	if nalu.Empty() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(nalu.Data)
}

type layoutRequest struct {
	Layout *omaf.TileLayout        `json:"layout"`
	Rwpk   *omaf.RegionWisePacking `json:"rwpk,omitempty"`
	Covi   *omaf.ContentCoverage   `json:"covi,omitempty"`
}

// 替换轨道布局：先销毁提取器，下一帧按新布局生成
func (s *Service) onSaveLayout(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	t, ok := s.trackOf(w, r, pathParams)
	if !ok {
		return
	}

	var req layoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	def := layout.Viewport(t.ViewportIdx())
	if def == nil {
		info := t.Info()
		def = &layout.ViewportDef{Index: info.ViewportIdx, Projection: info.Projection}
	}
	def.Layout = req.Layout
	if req.Rwpk != nil {
		def.Rwpk = req.Rwpk
	}
	if req.Covi != nil {
		def.Covi = req.Covi
	}

	s.packL.Lock()
	err := s.applyViewport(t, def)
	s.packL.Unlock()
	if err != nil {
		http.Error(w, err.Error(), statusOf(err))
		return
	}

	if err := layout.Flush(); err != nil {
		s.logger.Errorf("flush layout failed; %v", err)
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) applyViewport(t *packing.ExtractorTrack, def *layout.ViewportDef) error {
	if err := layout.SaveViewport(def); err != nil {
		return err
	}

	if err := t.DestroyExtractors(); err != nil {
		return err
	}
	if err := t.SetTileLayout(def.Layout); err != nil {
		return err
	}
	s.resetArrived(t.ViewportIdx())
	if def.Rwpk != nil {
		t.SetDstRwpk(def.Rwpk)
	}
	if def.Covi != nil {
		t.SetDstCovi(def.Covi)
	}
	return nil
}

func (s *Service) trackOf(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) (*packing.ExtractorTrack, bool) {
	idx, err := parseID(pathParams.ByName("idx"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	t := s.track(idx)
	if t == nil {
		http.NotFound(w, r)
		return nil, false
	}
	return t, true
}

func parseID(s string) (uint8, error) {
	id, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(id), nil
}

// statusOf 把打包错误映射为 http 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, packing.ErrNullPointer),
		errors.Is(err, packing.ErrInvalidData),
		errors.Is(err, omaf.ErrEmptyLayout),
		errors.Is(err, layout.ErrUnknownStream):
		return http.StatusBadRequest
	case errors.Is(err, packing.ErrStreamNotFound),
		errors.Is(err, packing.ErrExtractorNotFound):
		return http.StatusNotFound
	case errors.Is(err, packing.ErrUndefinedOperation):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func jsonTo(w io.Writer, o interface{}) error {
	formatted := buffers.Get().(*bytes.Buffer)
	formatted.Reset()
	defer buffers.Put(formatted)

	body, err := json.Marshal(o)
	if err != nil {
		return err
	}

	if err := json.Indent(formatted, body, "", "\t"); err != nil {
		return err
	}

	if _, err := w.Write(formatted.Bytes()); err != nil {
		return err
	}
	return nil
}
