// Package audio plays synthesized speech through the default output device
// and arbitrates audio focus with other media players on the session bus.
// Playback uses the beep library; focus is taken by ducking or pausing MPRIS
// players for the length of an utterance.
package audio
