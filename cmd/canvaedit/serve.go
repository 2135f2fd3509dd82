package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Madhi07/canvaEditTool-V7/internal/clip"
	"github.com/Madhi07/canvaEditTool-V7/internal/config"
	"github.com/Madhi07/canvaEditTool-V7/internal/decode"
	"github.com/Madhi07/canvaEditTool-V7/internal/engine"
	"github.com/Madhi07/canvaEditTool-V7/internal/stream"
	"github.com/Madhi07/canvaEditTool-V7/internal/web"
)

var (
	flagPort   int
	flagAssets string
	flagProxy  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the editor server",
	Long:  "Start the clip store, playback engine and monitor streams, and serve the HTTP API.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "listen port (overrides CANVAEDIT_PORT)")
	serveCmd.Flags().StringVar(&flagAssets, "assets", "", "local asset directory (overrides CANVAEDIT_ASSET_DIR)")
	serveCmd.Flags().StringVar(&flagProxy, "proxy", "", "proxy endpoint prefix for cross-origin assets (overrides CANVAEDIT_PROXY_BASE)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagAssets != "" {
		cfg.AssetDir = flagAssets
	}
	if flagProxy != "" {
		cfg.ProxyBase = flagProxy
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("canvaedit starting up...")

	// Decode cache over the fallback fetch chain: direct URL, then the
	// proxy, then the local asset directory.
	httpClient := &http.Client{Timeout: cfg.HTTPTimout}
	cache := decode.NewCache(cfg.CacheCapacity,
		&decode.DirectFetcher{Client: httpClient},
		&decode.ProxyFetcher{Client: httpClient, Base: cfg.ProxyBase},
		&decode.FileFetcher{Dir: cfg.AssetDir},
	)

	store := clip.NewStore()

	eng := engine.New(store, cache, engine.DriftPolicy{Threshold: cfg.DriftThreshold.Seconds()})
	eng.Scheduler().SetFade(cfg.FadeDuration)
	eng.Scheduler().SetMasterVolume(cfg.MasterVolume)
	defer eng.Shutdown()
	go eng.Run(ctx)

	// Broadcaster: fan-out mixed PCM frames to all monitor listeners
	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, eng.Frames())

	webrtcHandler := stream.NewWebRTCHandler(broadcaster)

	mux := newMux(store, eng, broadcaster, webrtcHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("canvaedit live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

func newMux(store *clip.Store, eng *engine.Engine, broadcaster *stream.Broadcaster, webrtcHandler *stream.WebRTCHandler) *http.ServeMux {
	mux := http.NewServeMux()

	// Web UI
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(web.IndexHTML)
	})

	// Monitor streams
	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster))
	mux.Handle("/offer", webrtcHandler)

	// Clip API
	mux.HandleFunc("/api/clips", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, map[string]any{
				"clips":      store.Snapshot(),
				"generation": store.Generation(),
			})
		case http.MethodPost:
			var req struct {
				Kind          clip.Kind `json:"kind"`
				SourceRef     string    `json:"sourceRef"`
				AssetDuration float64   `json:"assetDuration"`
				StartTime     float64   `json:"startTime"`
				Gain          *float64  `json:"gain"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SourceRef == "" {
				http.Error(w, "invalid clip", http.StatusBadRequest)
				return
			}
			c := clip.New(req.Kind, req.SourceRef, req.AssetDuration)
			c.StartTime = req.StartTime // ignored for visual clips; they append
			if req.Gain != nil {
				c.Gain = *req.Gain
			}
			stored, err := store.Add(c)
			if err != nil {
				writeEditError(w, err)
				return
			}
			writeJSON(w, stored)
		default:
			http.Error(w, "GET or POST required", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/clips/split", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID   string  `json:"id"`
			Time float64 `json:"time"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		first, second, err := store.Split(req.ID, req.Time)
		if err != nil {
			writeEditError(w, err)
			return
		}
		writeJSON(w, map[string]any{"first": first, "second": second})
	})

	mux.HandleFunc("/api/clips/trim", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID        string   `json:"id"`
			TrimStart *float64 `json:"trimStart"`
			TrimEnd   *float64 `json:"trimEnd"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if req.TrimStart != nil {
			if err := store.SetTrimStart(req.ID, *req.TrimStart); err != nil {
				writeEditError(w, err)
				return
			}
		}
		if req.TrimEnd != nil {
			if err := store.SetTrimEnd(req.ID, *req.TrimEnd); err != nil {
				writeEditError(w, err)
				return
			}
		}
		c, _ := store.Get(req.ID)
		writeJSON(w, c)
	})

	mux.HandleFunc("/api/clips/move", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID        string  `json:"id"`
			StartTime float64 `json:"startTime"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if err := store.SetStartTime(req.ID, req.StartTime); err != nil {
			writeEditError(w, err)
			return
		}
		c, _ := store.Get(req.ID)
		writeJSON(w, c)
	})

	mux.HandleFunc("/api/clips/gain", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID   string  `json:"id"`
			Gain float64 `json:"gain"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if err := store.SetGain(req.ID, req.Gain); err != nil {
			writeEditError(w, err)
			return
		}
		c, _ := store.Get(req.ID)
		writeJSON(w, c)
	})

	mux.HandleFunc("/api/clips/delete", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if err := store.Delete(req.ID); err != nil {
			writeEditError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	})

	// Transport updates from the UI player
	mux.HandleFunc("/api/transport", func(w http.ResponseWriter, r *http.Request) {
		var t engine.Transport
		if !decodePost(w, r, &t) {
			return
		}
		eng.Apply(t)
		writeJSON(w, eng.Status())
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		st := eng.Status()
		w.Header().Set("Access-Control-Allow-Origin", "*")
		writeJSON(w, map[string]any{
			"currentTime":   st.CurrentTime,
			"playing":       st.Playing,
			"sessionToken":  st.SessionToken,
			"activeHandles": st.ActiveHandles,
			"masterVolume":  st.MasterVolume,
			"clipCount":     len(store.Snapshot()),
			"listeners":     broadcaster.ListenerCount() + webrtcHandler.PeerCount(),
		})
	})

	return mux
}

func decodePost(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeEditError maps a rejected edit to 409 so the UI can surface it
// without treating it as a server fault.
func writeEditError(w http.ResponseWriter, err error) {
	if errors.Is(err, clip.ErrInvalidEdit) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
