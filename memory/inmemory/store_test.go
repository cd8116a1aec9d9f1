package inmemory

import (
	"testing"

	"github.com/KamdynS/mcpchat/memory/storetest"
)

func TestConversationContract(t *testing.T) {
	storetest.RunConversationContract(t, NewConversationStore())
}

func TestConcurrentAppend(t *testing.T) {
	storetest.RunConcurrentAppend(t, NewConversationStore())
}
