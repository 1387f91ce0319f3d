package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCompletesOnce(t *testing.T) {
	tok := newPublishToken(&Publish{PacketID: 5, QoSLevel: 1})
	assert.NoError(t, tok.Err())
	assert.False(t, tok.Acknowledged())

	select {
	case <-tok.Done():
		t.Fatal("token completed early")
	default:
	}

	tok.acked = true
	tok.complete(nil)
	tok.complete(errors.New("second completion"))

	require.NoError(t, tok.Wait(context.Background()))
	assert.NoError(t, tok.Err())
	assert.True(t, tok.Acknowledged())
	assert.Equal(t, uint16(5), tok.PacketID())
}

func TestTokenWaitContext(t *testing.T) {
	tok := newSubscribeToken()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, tok.Wait(ctx), context.DeadlineExceeded)
	assert.Nil(t, tok.SubAck())

	tok.complete(ErrDisconnected)
	assert.ErrorIs(t, tok.Wait(context.Background()), ErrDisconnected)
	assert.ErrorIs(t, tok.Err(), ErrDisconnected)
	assert.Nil(t, tok.SubAck())
}

func TestConnectTokenConnAck(t *testing.T) {
	tok := newConnectToken()
	assert.Nil(t, tok.ConnAck())

	tok.connack = &ConnAck{SessionPresent: true}
	assert.Nil(t, tok.ConnAck(), "pending token hides the response")

	tok.complete(nil)
	require.NotNil(t, tok.ConnAck())
	assert.True(t, tok.ConnAck().SessionPresent)
}
