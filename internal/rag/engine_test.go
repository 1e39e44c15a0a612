package rag_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"ciq-assistant/internal/document"
	"ciq-assistant/internal/rag"
	"ciq-assistant/internal/rag/mocks"
	"ciq-assistant/internal/router"
	"ciq-assistant/internal/storage"
	storagemocks "ciq-assistant/internal/storage/mocks"
	"ciq-assistant/internal/vectorstore"
	vsmocks "ciq-assistant/internal/vectorstore/mocks"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const maxTurns = 20

type engineMocks struct {
	classifier *mocks.MockClassifier
	embedder   *mocks.MockEmbedder
	llm        *mocks.MockGenerator
	store      *vsmocks.MockStore
	memory     *storagemocks.MockConversationStore
}

func newEngine(t *testing.T) (rag.Engine, engineMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := engineMocks{
		classifier: mocks.NewMockClassifier(ctrl),
		embedder:   mocks.NewMockEmbedder(ctrl),
		llm:        mocks.NewMockGenerator(ctrl),
		store:      vsmocks.NewMockStore(ctrl),
		memory:     storagemocks.NewMockConversationStore(ctrl),
	}
	return rag.NewEngine(m.classifier, m.embedder, m.store, m.memory, m.llm, maxTurns), m
}

func expectRemember(m engineMocks, sessionID, query, answer string) {
	m.memory.EXPECT().Append(gomock.Any(), sessionID, []storage.Turn{
		{Role: storage.RoleUser, Text: query},
		{Role: storage.RoleAssistant, Text: answer},
	}).Return(nil)
	m.memory.EXPECT().Trim(gomock.Any(), sessionID, maxTurns).Return(nil)
}

func TestEngine_Answer_LogQuery(t *testing.T) {
	engine, m := newEngine(t)
	ctrl := gomock.NewController(t)
	index := vsmocks.NewMockIndex(ctrl)

	query := "show me the error log for node 5"
	logDoc := document.Document{
		Content:    "[node5.log]\nERROR link down on node 5",
		Collection: document.CollectionLog,
		SourcePath: "data/logs/node5.log",
	}

	m.classifier.EXPECT().Classify(gomock.Any(), query).Return(router.CategoryLog, nil)
	m.memory.EXPECT().History(gomock.Any(), "s1", maxTurns).Return([]storage.Turn{
		{Role: storage.RoleUser, Text: "hi"},
		{Role: storage.RoleAssistant, Text: "hello"},
	}, nil)
	// Only the log index may be opened.
	m.store.EXPECT().Open(gomock.Any(), document.CollectionLog).Return(index, nil)
	index.EXPECT().Len().Return(1)
	m.embedder.EXPECT().EmbedTexts(gomock.Any(), []string{query}).Return([][]float32{{0.1, 0.2}}, nil)
	index.EXPECT().Search(gomock.Any(), []float32{0.1, 0.2}, 1).Return([]vectorstore.Match{
		{Document: logDoc, Distance: 0.5, Position: 0},
	}, nil)
	m.llm.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, prompt string) (string, error) {
		for _, want := range []string{
			"diagnostics assistant",
			"Log Context:\nUser: hi\nAssistant: hello\n\n[node5.log]\nERROR link down on node 5",
			"User Query:\n" + query,
		} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt missing %q:\n%s", want, prompt)
			}
		}
		return "Node 5 reported a link down.", nil
	})
	expectRemember(m, "s1", query, "Node 5 reported a link down.")

	resp, err := engine.Answer(context.Background(), rag.AnswerRequest{SessionID: "s1", Query: query})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Answer != "Node 5 reported a link down." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if resp.Category != router.CategoryLog {
		t.Errorf("Category = %q, want log", resp.Category)
	}
	if resp.Source != logDoc.SourcePath {
		t.Errorf("Source = %q, want %q", resp.Source, logDoc.SourcePath)
	}
}

func TestEngine_Answer_GeneralSkipsRetrieval(t *testing.T) {
	engine, m := newEngine(t)

	m.classifier.EXPECT().Classify(gomock.Any(), "thanks!").Return(router.CategoryGeneral, nil)
	m.memory.EXPECT().History(gomock.Any(), "default", maxTurns).Return([]storage.Turn{
		{Role: storage.RoleUser, Text: "what is PCI?"},
		{Role: storage.RoleAssistant, Text: "Physical Cell ID."},
	}, nil)
	m.llm.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, prompt string) (string, error) {
		want := "Past Conversation\nUser: what is PCI?\nAssistant: Physical Cell ID.\n\n\nUser Query:\nthanks!"
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
		return "You're welcome.", nil
	})
	expectRemember(m, "default", "thanks!", "You're welcome.")

	resp, err := engine.Answer(context.Background(), rag.AnswerRequest{Query: "thanks!"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Category != router.CategoryGeneral || resp.Source != "" {
		t.Errorf("resp = %+v, want general with no source", resp)
	}
}

func TestEngine_Answer_MissingIndexUsesMarker(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m engineMocks, ctrl *gomock.Controller)
	}{
		{
			name: "no index",
			setup: func(m engineMocks, _ *gomock.Controller) {
				m.store.EXPECT().Open(gomock.Any(), document.CollectionCIQ).Return(nil, vectorstore.ErrIndexNotFound)
			},
		},
		{
			name: "empty index",
			setup: func(m engineMocks, ctrl *gomock.Controller) {
				index := vsmocks.NewMockIndex(ctrl)
				index.EXPECT().Len().Return(0)
				m.store.EXPECT().Open(gomock.Any(), document.CollectionCIQ).Return(index, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, m := newEngine(t)
			tt.setup(m, gomock.NewController(t))

			m.classifier.EXPECT().Classify(gomock.Any(), "PCI of site A?").Return(router.CategoryCIQ, nil)
			m.memory.EXPECT().History(gomock.Any(), "s", maxTurns).Return(nil, nil)
			m.llm.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, prompt string) (string, error) {
				if !strings.Contains(prompt, "Context:\n\n"+rag.NoContextMarker) {
					t.Errorf("prompt missing marker:\n%s", prompt)
				}
				return "unknown", nil
			})
			expectRemember(m, "s", "PCI of site A?", "unknown")

			resp, err := engine.Answer(context.Background(), rag.AnswerRequest{SessionID: "s", Query: "PCI of site A?"})
			if err != nil {
				t.Fatalf("Answer() error = %v", err)
			}
			if resp.Source != "" {
				t.Errorf("Source = %q, want empty", resp.Source)
			}
		})
	}
}

func TestEngine_Answer_ClassificationFailure(t *testing.T) {
	engine, m := newEngine(t)

	m.classifier.EXPECT().Classify(gomock.Any(), "q").Return(router.Category(""), errors.New("router model down"))

	_, err := engine.Answer(context.Background(), rag.AnswerRequest{SessionID: "s", Query: "q"})
	if !errors.Is(err, rag.ErrClassificationFailure) {
		t.Fatalf("error = %v, want ErrClassificationFailure", err)
	}
}

func TestEngine_Answer_CorruptIndex(t *testing.T) {
	engine, m := newEngine(t)

	m.classifier.EXPECT().Classify(gomock.Any(), "q").Return(router.CategoryTemplate, nil)
	m.memory.EXPECT().History(gomock.Any(), "s", maxTurns).Return(nil, nil)
	m.store.EXPECT().Open(gomock.Any(), document.CollectionTemplate).Return(nil, vectorstore.ErrIndexCorrupt)

	_, err := engine.Answer(context.Background(), rag.AnswerRequest{SessionID: "s", Query: "q"})
	if !errors.Is(err, rag.ErrRetrievalFailure) {
		t.Errorf("error = %v, want ErrRetrievalFailure", err)
	}
	if !errors.Is(err, vectorstore.ErrIndexCorrupt) {
		t.Errorf("error = %v, want ErrIndexCorrupt in chain", err)
	}
}

func TestEngine_Answer_GenerationFailureKeepsMemory(t *testing.T) {
	engine, m := newEngine(t)

	m.classifier.EXPECT().Classify(gomock.Any(), "q").Return(router.CategoryGeneral, nil)
	m.memory.EXPECT().History(gomock.Any(), "s", maxTurns).Return(nil, nil)
	m.llm.EXPECT().Chat(gomock.Any(), gomock.Any()).Return("", errors.New("timeout"))
	// No Append or Trim expected.

	_, err := engine.Answer(context.Background(), rag.AnswerRequest{SessionID: "s", Query: "q"})
	if !errors.Is(err, rag.ErrRetrievalFailure) {
		t.Fatalf("error = %v, want ErrRetrievalFailure", err)
	}
}

func TestEngine_Answer_MemoryWriteFailureStillAnswers(t *testing.T) {
	engine, m := newEngine(t)

	m.classifier.EXPECT().Classify(gomock.Any(), "q").Return(router.CategoryGeneral, nil)
	m.memory.EXPECT().History(gomock.Any(), "s", maxTurns).Return(nil, nil)
	m.llm.EXPECT().Chat(gomock.Any(), gomock.Any()).Return("a", nil)
	m.memory.EXPECT().Append(gomock.Any(), "s", gomock.Len(2)).Return(errors.New("disk full"))

	resp, err := engine.Answer(context.Background(), rag.AnswerRequest{SessionID: "s", Query: "q"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if resp.Answer != "a" {
		t.Errorf("Answer = %q, want a", resp.Answer)
	}
}
