package main

import (
	"net"
	"net/http"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
	"golang.org/x/net/http2"
)

type keepAliveListener struct {
	net.Listener
}

type keepAliveSetter interface {
	SetKeepAlive(bool) error
	SetKeepAlivePeriod(time.Duration) error
}

func (ln *keepAliveListener) Accept() (net.Conn, error) {
	conn, err := ln.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if kc, ok := conn.(keepAliveSetter); ok {
		kc.SetKeepAlive(true)
		kc.SetKeepAlivePeriod(3 * time.Minute)
	}

	return conn, nil
}

// listenAndServe serves tenant traffic on l. Proxy protocol v2 framing is
// required on proxyv2 listeners so the client address survives the load
// balancer hop.
func (a *theApp) listenAndServe(l net.Listener, handler http.Handler, proxyv2 bool) error {
	l = &keepAliveListener{l}

	if proxyv2 {
		l = &proxyproto.Listener{
			Listener: l,
			Policy: func(upstream net.Addr) (proxyproto.Policy, error) {
				return proxyproto.REQUIRE, nil
			},
		}
	}

	return a.serve(l, handler, a.config.General.HTTP2)
}

func (a *theApp) serve(l net.Listener, handler http.Handler, useHTTP2 bool) error {
	server := &http.Server{Handler: handler}

	if useHTTP2 {
		if err := http2.ConfigureServer(server, &http2.Server{}); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.servers = append(a.servers, server)
	a.mu.Unlock()

	return server.Serve(l)
}
