package e2e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type DiagSuite struct {
	BaseEngineSuite
}

func TestDiagSuite(t *testing.T) {
	suite.Run(t, new(DiagSuite))
}

func (s *DiagSuite) TestWithSleep() {
	u1 := s.Dial("u1")
	defer u1.Close()
	u2 := s.Dial("u2")
	defer u2.Close()

	time.Sleep(500 * time.Millisecond)

	u1.Send(map[string]any{"type": "send_message", "to": "u2", "text": "hi"})
	push := u2.Expect("new_message")
	s.Require().Equal("hi", push.Message.Text)
}
