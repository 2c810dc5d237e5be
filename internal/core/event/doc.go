// Package event provides the in-process publish/subscribe bus that
// connects gameplay to the persistence engine.
//
// Gameplay code publishes trigger topics (level-up, quest-completed,
// scene-transition, game-paused, focus-lost) that the autosave
// scheduler listens for, and the engine publishes lifecycle topics
// (save/load started, completed, failed) that UI layers subscribe to
// for indicators and error surfaces.
//
// Subscribe returns a Subscription handle; closing the handle removes
// the subscriber. Handlers run in their own goroutines, so a slow
// subscriber never stalls a save.
package event
