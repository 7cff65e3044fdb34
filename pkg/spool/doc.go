// Package spool maps printer tray records onto inventory spools.
//
// It provides the three per-record stages of the pipeline:
//
//   - Resolver: locate the tray in the slot mapping and coerce the
//     remaining percentage (phase one), then coerce the declared tray
//     weight and compute remaining grams (phase two). The two phases are
//     split because the change-detection baseline must advance between
//     them: a tray with a usable percentage but a broken tray_weight still
//     consumes the observation.
//   - Session/SessionFactory: the interface boundary to the inventory
//     store. A session is scoped to one message and released before the
//     next receive.
//   - Dispatcher: invokes the store update and classifies the outcome;
//     store failures are logged and contained, never propagated.
package spool
