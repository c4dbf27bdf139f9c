package transport

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framewire-io/framewire/internal/proto"
)

// echoServer answers every request-stream with the demanded number of
// payload frames echoing the request data, the last one marked complete.
func echoServer(t *testing.T, opts Options, token string) *httptest.Server {
	t.Helper()
	srv := NewServer(opts, token, func(c *Conn) {
		defer c.Close()
		for {
			st, err := c.Accept()
			if err != nil {
				return
			}
			go func() {
				f, err := st.Recv(5 * time.Second)
				if err != nil {
					return
				}
				if f.Type() != proto.FrameRequestStream {
					_ = st.Error("want request-stream")
					return
				}
				n, err := f.InitialRequestN()
				if err != nil {
					return
				}
				data, _ := f.Data()
				echo := append([]byte(nil), data...)
				for i := uint32(0); i < n; i++ {
					flags := proto.FlagNext
					if i == n-1 {
						flags |= proto.FlagComplete
					}
					if err := st.Payload(nil, echo, flags); err != nil {
						return
					}
				}
			}()
		}
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func dialTest(t *testing.T, url string, opts Options, token string) *Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url+ConnectPath, token, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRequestStreamEcho(t *testing.T) {
	ts := echoServer(t, Options{}, "")
	c := dialTest(t, ts.URL, Options{}, "")

	st, err := c.OpenStream()
	require.NoError(t, err)
	require.NoError(t, st.RequestStream(3, nil, []byte("hi")))

	for i := 0; i < 3; i++ {
		f, err := st.Recv(5 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, proto.FramePayload, f.Type())
		data, err := f.Data()
		require.NoError(t, err)
		assert.Equal(t, []byte("hi"), data)
		if i == 2 {
			assert.True(t, f.Flags().Has(proto.FlagComplete))
		}
	}
}

func TestFragmentedRequestOverWire(t *testing.T) {
	// limit forces the request to cross as a multi-frame chain
	opts := Options{MaxFrameSize: 32}
	ts := echoServer(t, opts, "")
	c := dialTest(t, ts.URL, opts, "")

	big := bytes.Repeat([]byte{'x'}, 500)
	st, err := c.OpenStream()
	require.NoError(t, err)
	require.NoError(t, st.RequestStream(1, nil, big))

	f, err := st.Recv(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, proto.FramePayload, f.Type())
	data, err := f.Data()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(big, data))
	assert.True(t, f.Flags().Has(proto.FlagComplete))
}

func TestClientStreamIDsAreOdd(t *testing.T) {
	ts := echoServer(t, Options{}, "")
	c := dialTest(t, ts.URL, Options{}, "")

	a, err := c.OpenStream()
	require.NoError(t, err)
	b, err := c.OpenStream()
	require.NoError(t, err)

	assert.Equal(t, uint32(1), a.ID())
	assert.Equal(t, uint32(3), b.ID())
	assert.True(t, proto.IsClientInitiated(a.ID()))
	assert.True(t, proto.IsClientInitiated(b.ID()))
}

func TestDialTokenRejected(t *testing.T) {
	ts := echoServer(t, Options{}, "secret")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := Dial(ctx, ts.URL+ConnectPath, "wrong", Options{})
	assert.Error(t, err)

	c := dialTest(t, ts.URL, Options{}, "secret")
	_, err = c.OpenStream()
	assert.NoError(t, err)
}

func TestStreamClosedAfterConnClose(t *testing.T) {
	ts := echoServer(t, Options{}, "")
	c := dialTest(t, ts.URL, Options{}, "")

	st, err := c.OpenStream()
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = st.Recv(time.Second)
	assert.Error(t, err)
	assert.Error(t, st.Send(proto.NewCancel(st.ID())))
}
