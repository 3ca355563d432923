// Package toiopose streams live posture from a toio Core Cube to 3D
// visualization sinks. It can be used as the toiopose CLI or embedded as a
// library in other Go programs.
//
// # Basic Usage
//
//	cfg := toiopose.Config{
//	    AssetPath: "./assets/toiocorecube_v003.gltf",
//	}
//
//	p, err := toiopose.New(cfg,
//	    toiopose.WithLogger(log.NewZerologAdapter()),
//	    toiopose.WithRenderer(myRenderer),
//	)
//	if err != nil {
//	    return err
//	}
//
//	res, err := p.Run(ctx)
//	if errors.Is(err, toiopose.ErrCancelled) {
//	    // ctx ended the run; the cube was still disconnected cleanly
//	}
//
// Run blocks until the cube's button is pressed (or, with StopMode "count",
// until SampleCount samples arrived), ctx is done, or the link fails. Every
// exit path unregisters the notification handlers in reverse order and
// disconnects.
//
// # Plugins
//
// Plugins registered with [WithPlugin] are initialized in registration order
// after the scene is drawn and shut down in reverse order when Run returns.
//
// # Dependency Injection
//
// For testing, inject a transport and renderer:
//
//	p, err := toiopose.New(cfg,
//	    toiopose.WithTransport(fakeTransport),
//	    toiopose.WithRenderer(recordingRenderer),
//	)
package toiopose
