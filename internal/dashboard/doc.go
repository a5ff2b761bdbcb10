// Package dashboard implements the live terminal dashboard for a metrics
// stream.
//
// # Architecture
//
// The package uses the Bubble Tea framework (Model-Update-View):
//
//   - Composer: owns the stream manager, the rolling buffer and the anomaly
//     flag, and re-renders the chart scene whenever a sample lands
//   - Model: the Bubble Tea model that drives the Composer from its Update
//     loop and renders tiles, the alert banner, the chart and a status line
//
// # Message Flow
//
// Transport goroutines never touch dashboard state. The manager queues
// decoded events on two channels; Model keeps one waiting command per
// channel, and each eventMsg is handed to Composer.Dispatch on the Update
// loop:
//
//  1. waitCmd receives an event from Samples() or Anomalies()
//  2. Update calls Composer.Dispatch, which runs the registered handler
//     only if the event belongs to the live session
//  3. the handler pushes the sample (or sets the flag) and rebuilds the scene
//  4. View renders the new scene
//
// # Keyboard Shortcuts
//
//	q, Ctrl+C   - Quit
//	r           - Reconnect (clears the window)
//	e           - Export the current chart to SVG
//	?           - Toggle help overlay
package dashboard
