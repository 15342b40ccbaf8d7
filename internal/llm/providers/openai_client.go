package providers

import (
	"context"
	"fmt"
	"io"
	"os"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared"

	"datalens/internal/common"
)

type OpenAIProvider struct {
	client     openai.Client
	chatModel  string
	audioModel string
	imageModel string
}

func NewOpenAIProvider(client openai.Client) *OpenAIProvider {
	chatModel := os.Getenv("OPENAI_CHAT_MODEL")
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	audioModel := os.Getenv("OPENAI_AUDIO_MODEL")
	if audioModel == "" {
		audioModel = "whisper-1"
	}
	imageModel := os.Getenv("OPENAI_IMAGE_MODEL")
	if imageModel == "" {
		imageModel = "dall-e-3"
	}
	logger := common.Logger()
	logger.Info("llm: OpenAI provider configured",
		"chat_model", chatModel, "audio_model", audioModel, "image_model", imageModel)
	return &OpenAIProvider{
		client:     client,
		chatModel:  chatModel,
		audioModel: audioModel,
		imageModel: imageModel,
	}
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []Message, opts ...ChatOption) (string, error) {
	logger := common.Logger()
	options := ChatOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.chatModel),
		Messages: convertMessages(messages),
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	logger.Debug("llm: sending chat completion request", "model", o.chatModel, "messages", len(messages))
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("llm: chat completion failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	logger.Debug("llm: chat completion succeeded")
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) ChatTools(ctx context.Context, messages []Message, tools []ToolSpec) (*ChatResult, error) {
	logger := common.Logger()
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.chatModel),
		Messages: convertMessages(messages),
	}
	for _, tool := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  shared.FunctionParameters(tool.Parameters),
		}))
	}
	logger.Debug("llm: sending tool chat request", "model", o.chatModel, "messages", len(messages), "tools", len(tools))
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("llm: tool chat request failed", "error", err)
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}
	choice := resp.Choices[0].Message
	result := &ChatResult{Content: choice.Content}
	for _, call := range choice.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	logger.Debug("llm: tool chat request succeeded", "tool_calls", len(result.ToolCalls))
	return result, nil
}

func (o *OpenAIProvider) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	logger := common.Logger()
	if audio == nil {
		return "", fmt.Errorf("no audio provided")
	}
	logger.Debug("llm: transcribing audio", "model", o.audioModel, "filename", filename)
	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(o.audioModel),
		File:  openai.File(audio, filename, "application/octet-stream"),
	})
	if err != nil {
		logger.Error("llm: transcription failed", "error", err)
		return "", err
	}
	return resp.Text, nil
}

func (o *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) (string, error) {
	logger := common.Logger()
	logger.Debug("llm: generating image", "model", o.imageModel, "prompt_length", len(prompt))
	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(o.imageModel),
		Size:   openai.ImageGenerateParamsSize1024x1024,
		N:      openai.Int(1),
	})
	if err != nil {
		logger.Error("llm: image generation failed", "error", err)
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("no image returned")
	}
	if resp.Data[0].URL != "" {
		return resp.Data[0].URL, nil
	}
	return resp.Data[0].B64JSON, nil
}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

// convertMessages maps provider-neutral messages onto the OpenAI param
// unions, including assistant turns that requested tool calls and the tool
// result turns answering them.
func convertMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "assistant":
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, call := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: call.Arguments,
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case "tool":
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
