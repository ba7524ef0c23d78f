package language

// detectRequest is the language-detection request payload.
type detectRequest struct {
	Document string `json:"document"`
}

// detectResponse carries the detected primary language.
type detectResponse struct {
	PrimaryLanguageCode string `json:"primaryLanguageCode"`
}

// piiRequest is the PII-recognition request payload.
type piiRequest struct {
	Document string `json:"document"`
	Language string `json:"language"`
}

// PIIEntity is one sensitive span detected in a document. Offset and
// Length locate the span in the submitted text.
type PIIEntity struct {
	Category        string  `json:"category"`
	Text            string  `json:"text"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Offset          int     `json:"offset"`
	Length          int     `json:"length"`
}

// PIIResult is the PII-recognition response.
type PIIResult struct {
	Entities []PIIEntity `json:"entities"`
	IsError  bool        `json:"isError"`
}

// ConversationItem is the utterance submitted for conversation analysis.
type ConversationItem struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participantId"`
	Language      string `json:"language"`
	Text          string `json:"text"`
}

// ConversationTask is the request payload shared by the CLU and
// orchestration runtimes.
type ConversationTask struct {
	Kind          string                `json:"kind"`
	AnalysisInput ConversationInput     `json:"analysisInput"`
	Parameters    ConversationParameters `json:"parameters"`
}

// ConversationInput wraps the conversation item.
type ConversationInput struct {
	ConversationItem ConversationItem `json:"conversationItem"`
}

// ConversationParameters names the project and deployment serving the task.
type ConversationParameters struct {
	ProjectName    string `json:"projectName"`
	DeploymentName string `json:"deploymentName"`
}

// NewConversationTask builds the analysis payload for one utterance.
func NewConversationTask(utterance, lang, id, project, deployment string) ConversationTask {
	return ConversationTask{
		Kind: "Conversation",
		AnalysisInput: ConversationInput{
			ConversationItem: ConversationItem{
				ID:            id,
				ParticipantID: "0",
				Language:      lang,
				Text:          utterance,
			},
		},
		Parameters: ConversationParameters{
			ProjectName:    project,
			DeploymentName: deployment,
		},
	}
}

// qnaRequest is the QA query payload.
type qnaRequest struct {
	Question string `json:"question"`
	Top      int    `json:"top"`
}

// exportStatus is the terminal body of an authoring export job.
type exportStatus struct {
	Status    string `json:"status"`
	ResultURL string `json:"resultUrl"`
}
