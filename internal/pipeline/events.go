package pipeline

// Event type values emitted to the client over the duplex connection.
const (
	EventInfo          = "info"
	EventError         = "error"
	EventEcho          = "echo"
	EventTranscript    = "transcript"
	EventWeather       = "weather"
	EventNews          = "news"
	EventLLMChunk      = "llm_chunk"
	EventLLMResponse   = "llm_response"
	EventLLMDone       = "llm_done"
	EventAudioStart    = "audio_start"
	EventAudioChunk    = "audio_chunk"
	EventAudioComplete = "audio_complete"
	EventAudioError    = "audio_error"
)

// Event is one JSON message emitted to the client. Fields are populated per
// event type; everything unused is omitted on the wire.
type Event struct {
	Type             string   `json:"type"`
	Message          string   `json:"message,omitempty"`
	Text             string   `json:"text,omitempty"`
	EndOfTurn        bool     `json:"end_of_turn,omitempty"`
	Duration         float64  `json:"duration,omitempty"`
	Data             any      `json:"data,omitempty"`
	ContextID        string   `json:"context_id,omitempty"`
	Audio            string   `json:"audio,omitempty"`
	Format           string   `json:"format,omitempty"`
	ChunkNumber      int      `json:"chunk_number,omitempty"`
	TotalChunksSoFar int      `json:"total_chunks_so_far,omitempty"`
	IsFinal          bool     `json:"is_final,omitempty"`
	TotalChunks      int      `json:"total_chunks,omitempty"`
	AllAudioChunks   []string `json:"all_audio_chunks,omitempty"`
}

// Emitter delivers events to the client. Implementations must be safe to
// call from any goroutine, including recognizer worker callbacks; delivery
// is best-effort and must never block the caller.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Info builds an informational event.
func Info(message string) Event {
	return Event{Type: EventInfo, Message: message}
}

// Error builds a structured error event.
func Error(message string) Event {
	return Event{Type: EventError, Message: message}
}
