/* WebServer.go: HTTP status, metrics and broadcast websocket endpoints
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	ljson "github.com/kraken-hpc/ipmbbridge/lib/json"
	"github.com/kraken-hpc/ipmbbridge/lib/ipmb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 512
)

// WebServer serves read-only bridge status over HTTP
type WebServer struct {
	reg    *ChannelRegistry
	filter *ipmb.CommandFilter
	em     *EventEmitter
	router *mux.Router
	log    *log.Entry

	mutex sync.Mutex
	srv   *http.Server
	done  chan struct{}
}

// NewWebServer creates a WebServer. Metrics are served from g.
func NewWebServer(reg *ChannelRegistry, filter *ipmb.CommandFilter, em *EventEmitter, g prometheus.Gatherer, l *log.Entry) *WebServer {
	if l == nil {
		l = log.NewEntry(log.StandardLogger())
	}
	w := &WebServer{
		reg:    reg,
		filter: filter,
		em:     em,
		log:    l.WithField("module", "WebServer"),
		done:   make(chan struct{}),
	}
	w.router = mux.NewRouter()
	w.router.HandleFunc("/channels", w.readChannels).Methods("GET")
	w.router.HandleFunc("/filter", w.readFilter).Methods("GET")
	w.router.HandleFunc("/broadcasts", w.serveWs).Methods("GET")
	w.router.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods("GET")
	return w
}

// Handler is the complete HTTP handler, CORS included
func (w *WebServer) Handler() http.Handler {
	return handlers.CORS(
		handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"}),
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET"}),
	)(w.router)
}

// Run serves on l until Stop is called
func (w *WebServer) Run(l net.Listener) error {
	srv := &http.Server{
		Handler:      w.Handler(),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	w.mutex.Lock()
	select {
	case <-w.done:
		w.mutex.Unlock()
		return nil
	default:
	}
	w.srv = srv
	w.mutex.Unlock()
	w.log.WithField("address", l.Addr().String()).Info("web server is listening")
	if e := srv.Serve(l); e != nil && e != http.ErrServerClosed {
		w.log.WithError(e).Error("http stopped")
		return e
	}
	w.log.Info("web server listener stopped")
	return nil
}

// Stop shuts the listener down and closes any websockets
func (w *WebServer) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	select {
	case <-w.done:
		return
	default:
	}
	close(w.done)
	if w.srv != nil {
		w.srv.Shutdown(context.Background())
	}
}

/*
 * Route handlers
 */

func (w *WebServer) readChannels(wrt http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	b, e := ljson.Marshal(ChannelListMessage(w.reg))
	if e != nil {
		w.log.WithError(e).Error("failed to marshal channel list")
		wrt.WriteHeader(http.StatusInternalServerError)
		return
	}
	wrt.Header().Set("Content-Type", "application/json")
	wrt.Write(b)
}

func (w *WebServer) readFilter(wrt http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()
	b, e := json.Marshal(w.filter.List())
	if e != nil {
		w.log.WithError(e).Error("failed to marshal command filter")
		wrt.WriteHeader(http.StatusInternalServerError)
		return
	}
	wrt.Header().Set("Content-Type", "application/json")
	wrt.Write(b)
}

// wsClient is a websocket receiving broadcast events
type wsClient struct {
	conn *websocket.Conn
	send chan *Event
	gone chan struct{}
	log  *log.Entry
}

func (w *WebServer) serveWs(wrt http.ResponseWriter, req *http.Request) {
	var upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, e := upgrader.Upgrade(wrt, req, nil)
	if e != nil {
		w.log.WithError(e).Error("error upgrading websocket connection")
		return
	}
	c := &wsClient{
		conn: conn,
		send: make(chan *Event, watchBuffer),
		gone: make(chan struct{}),
	}
	id := w.em.SubscribeNew(c.send)
	c.log = w.log.WithField("subscription", id)
	c.log.Debug("websocket added new client")
	go func() {
		c.write(w.done)
		w.em.Unsubscribe(id)
	}()
	go c.read()
}

// write sends events to the websocket until the peer or the server goes away
func (c *wsClient) write(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case <-c.gone:
			return
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if e := c.conn.WriteJSON(BroadcastEventMessage(ev)); e != nil {
				c.log.WithError(e).Error("error writing json to websocket connection")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if e := c.conn.WriteMessage(websocket.PingMessage, nil); e != nil {
				return
			}
		}
	}
}

// read discards client messages and notices when the peer closes
func (c *wsClient) read() {
	defer close(c.gone)
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, e := c.conn.ReadMessage(); e != nil {
			if websocket.IsUnexpectedCloseError(e, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(e).Error("websocket received unexpected close error")
			}
			return
		}
	}
}
