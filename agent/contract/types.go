package contract

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"
)

type Channel string

const (
	ChannelVoice    Channel = "voice"
	ChannelWhatsApp Channel = "whatsapp"
)

type TurnResult struct {
	History    []*schema.Message
	Answer     string
	ModelCalls int
	ToolName   string
}

// StopResult is a found route record or an error payload. Both serialize to
// the JSON handed back to the model.
type StopResult struct {
	Record map[string]any
	Error  string
}

func (r StopResult) Found() bool {
	return r.Error == "" && r.Record != nil
}

func (r StopResult) MarshalJSON() ([]byte, error) {
	if r.Found() {
		return json.Marshal(r.Record)
	}
	return json.Marshal(map[string]string{"error": r.Error})
}
