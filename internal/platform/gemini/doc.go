// Package gemini adapts Google's Gemini text-to-speech models to the
// speech.Synthesizer interface.
//
// The API answers with inline PCM16 mono audio, 24 kHz unless the part's
// MIME type says otherwise. Authentication failures map to
// speech.ErrConfiguration, other API failures to speech.ErrTransport, and
// responses without audio to speech.ErrEmptyPayload.
package gemini
