// Package tts turns transaction amounts into Vietnamese speech.
//
// A Manager owns one Engine (espeak-ng by default) and one audio Sink. It
// selects the voice at Init time, falling back to a second locale when the
// first is not supported, and speaks with flush semantics: a new utterance
// interrupts the one in flight. Synthesis and playback are asynchronous and
// report progress through a ProgressListener.
package tts
