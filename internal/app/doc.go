// Package app wires the segmentation server: configuration, paths,
// OpenTelemetry, the WebSocket hub, the optional Postgres report store and
// Kafka publisher, the services and the chi router. Run serves until an
// interrupt and then shuts everything down in reverse order.
//
// The typical entry point is:
//
//	application, err := app.NewApplication(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
package app
