// Package dev reloads browsers while the frontend build is rebuilt.
//
// A Watcher polls the build output and a ReloadServer pushes a message to
// every browser connected to the hot-reload socket:
//
//	reload   the document is reloaded
//	css      only stylesheets are refetched
//
// The browser side is pages.DefaultDevScript.
//
// # Usage
//
//	srv := dev.NewServer(dev.Options{Config: cfg, Logger: logger})
//	engine := pages.New(pages.Options{DevMode: true, Dev: srv.Reload()})
//
//	go srv.Run(ctx)
package dev
