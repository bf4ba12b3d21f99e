package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mhrkq/RumorChat/internal/adapter/llm"
	"github.com/mhrkq/RumorChat/internal/domain"
	"github.com/mhrkq/RumorChat/internal/metrics"
	"github.com/mhrkq/RumorChat/internal/protocol"
)

const assistantPrimer = "You are a helpful assistant participating in a multi-room chat service. Answer the user's latest message, using the prior turns for context."

// roomTailFallback is how many recent room messages seed a session with no
// usable history of its own.
const roomTailFallback = 5

// Dispatch accepts a prompt for an assistant session and schedules the
// upstream call on the bounded worker pool. It returns once the prompt is
// accepted; the reply (or the fail-soft placeholder) is recorded later and
// delivered to the owner's connections. Work on the same (owner, session)
// is serialized, so entries keep strict prompt/reply alternation.
func (s *Service) Dispatch(ctx context.Context, owner string, sessionNumber int, roomCode, prompt string) error {
	s.sessionLocks.Lock(owner)
	err := s.ensureSessionLocked(ctx, owner, sessionNumber)
	s.sessionLocks.Unlock(owner)
	if err != nil {
		return err
	}

	s.inFlight.Add(1)
	metrics.AssistantInFlight.Inc()

	s.sendToUser(roomCode, owner, &protocol.AssistantAckMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeAssistantAck, Ts: time.Now().UnixMilli()},
		Session:     sessionNumber,
	})

	go s.runDispatch(owner, sessionNumber, roomCode, prompt)
	return nil
}

// runDispatch performs one prompt/reply exchange. Decrements the in-flight
// counter on every exit path.
func (s *Service) runDispatch(owner string, sessionNumber int, roomCode, prompt string) {
	defer func() {
		s.inFlight.Add(-1)
		metrics.AssistantInFlight.Dec()
	}()

	ctx := context.Background()

	if err := s.dispatchPool.Acquire(ctx, 1); err != nil {
		log.Printf("ERROR: dispatch pool acquire failed for %s/%d: %v", owner, sessionNumber, err)
		return
	}
	defer s.dispatchPool.Release(1)

	sessionKey := fmt.Sprintf("%s#%d", owner, sessionNumber)
	s.sessionLocks.Lock(sessionKey)
	defer s.sessionLocks.Unlock(sessionKey)

	if _, err := s.recordSessionEntry(ctx, owner, sessionNumber, domain.EntryAuthorUser, prompt); err != nil {
		log.Printf("ERROR: failed to record prompt for %s/%d: %v", owner, sessionNumber, err)
		return
	}

	messages, err := s.assembleMessages(ctx, owner, sessionNumber, roomCode, prompt)
	if err != nil {
		log.Printf("WARN: context assembly failed for %s/%d: %v", owner, sessionNumber, err)
		messages = []llm.ChatMessage{
			{Role: "system", Content: assistantPrimer},
			{Role: "user", Content: prompt},
		}
	}

	reply, callErr := s.callAssistant(ctx, messages)
	if callErr != nil {
		log.Printf("WARN: assistant call failed for %s/%d: %v", owner, sessionNumber, callErr)
		metrics.AssistantFailures.Inc()
		reply = fmt.Sprintf("Sorry, I could not process your request: %q. Please try again later.", prompt)
	}

	if _, err := s.recordSessionEntry(ctx, owner, sessionNumber, domain.EntryAuthorAssistant, reply); err != nil {
		log.Printf("ERROR: failed to record reply for %s/%d: %v", owner, sessionNumber, err)
		return
	}

	s.sendToUser(roomCode, owner, &protocol.AssistantReplyMessage{
		BaseMessage: protocol.BaseMessage{Type: protocol.TypeAssistantReply, Ts: time.Now().UnixMilli()},
		Session:     sessionNumber,
		Content:     reply,
	})
}

// assembleMessages builds the exchange list for the upstream call: the
// system primer, then the session's alternating turns ending with the
// prompt just recorded. A session with no usable history instead gets the
// recent room transcript folded into the primer.
func (s *Service) assembleMessages(ctx context.Context, owner string, sessionNumber int, roomCode, prompt string) ([]llm.ChatMessage, error) {
	entries, err := s.BuildContext(ctx, owner, sessionNumber)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		primer := assistantPrimer
		if roomCode != "" {
			tail, err := s.store.TailMessages(ctx, roomCode, roomTailFallback, []string{domain.SystemAuthor})
			if err != nil {
				return nil, err
			}
			if len(tail) > 0 {
				primer += "\n\nRecent room transcript:\n" + renderTranscript(tail)
			}
		}
		return []llm.ChatMessage{
			{Role: "system", Content: primer},
			{Role: "user", Content: prompt},
		}, nil
	}

	messages := make([]llm.ChatMessage, 0, len(entries)+1)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: assistantPrimer})
	for _, e := range entries {
		role := "user"
		if e.Author == domain.EntryAuthorAssistant {
			role = "assistant"
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: e.Content})
	}
	return messages, nil
}

// callAssistant issues one attempt against the upstream endpoint with a
// bounded timeout. No automatic retry.
func (s *Service) callAssistant(ctx context.Context, messages []llm.ChatMessage) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.AssistantTimeout)
	defer cancel()

	temperature := s.config.AssistantTemperature
	maxTokens := s.config.AssistantMaxTokens

	resp, err := s.llmClient.CreateChatCompletion(callCtx, &llm.ChatCompletionRequest{
		Model:       s.config.AssistantModel,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", err
	}
	return llm.ReplyText(resp)
}

func renderTranscript(msgs []domain.ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Author)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
