package voice

// Tool is a function the hosted assistant may ask for. Only the declaration
// is sent; nothing here executes tool calls.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

func functionTool(name, description string, required []string, props map[string]interface{}) Tool {
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        name,
			Description: description,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		},
	}
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

// DefaultTools declares the phone, SMS and email actions offered to the assistant.
func DefaultTools() []Tool {
	return []Tool{
		functionTool("make_phone_call",
			"Place an outbound phone call to the visitor or a team member.",
			[]string{"phoneNumber"},
			map[string]interface{}{
				"phoneNumber": stringProp("Number to call in E.164 format"),
				"reason":      stringProp("Why the call is being placed"),
			}),
		functionTool("send_sms",
			"Send a text message with follow-up details.",
			[]string{"phoneNumber", "message"},
			map[string]interface{}{
				"phoneNumber": stringProp("Recipient number in E.164 format"),
				"message":     stringProp("Message body"),
			}),
		functionTool("send_email",
			"Send an email summarising the conversation.",
			[]string{"to", "subject", "body"},
			map[string]interface{}{
				"to":      stringProp("Recipient email address"),
				"subject": stringProp("Email subject"),
				"body":    stringProp("Email body"),
			}),
	}
}

// ToolNames lists the function names of tools.
func ToolNames(tools []Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Function.Name
	}
	return names
}
