package destination

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegments(t *testing.T) {
	tests := []struct {
		dir  string
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"videos", []string{"videos"}},
		{"a/b/c", []string{"a", "a/b", "a/b/c"}},
		{"/a/b/", []string{"/a", "/a/b"}},
		{"a//b", []string{"a", "a/b"}},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			assert.Equal(t, tt.want, segments(tt.dir))
		})
	}
}

func TestFind(t *testing.T) {
	entries := []Entry{
		{Name: "clip.mp4", Size: 10},
		{Name: "sub", IsDir: true},
	}
	e, ok := Find(entries, "clip.mp4")
	require.True(t, ok)
	assert.Equal(t, int64(10), e.Size)

	_, ok = Find(entries, "sub")
	assert.False(t, ok, "directories never match a file name")

	_, ok = Find(entries, "missing")
	assert.False(t, ok)
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "folderA/clip.mp4", Join("folderA", "clip.mp4"))
	assert.Equal(t, "a/b/clip.mp4", Join("a/b/", "clip.mp4"))
}

func TestMapErr(t *testing.T) {
	notFound := &textproto.Error{Code: 550, Msg: "No such file or directory"}
	err := mapErr("rename", "x/clip.mp4", notFound)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "x/clip.mp4")

	denied := &textproto.Error{Code: 553, Msg: "not allowed"}
	err = mapErr("stor", "x", denied)
	assert.False(t, IsNotFound(err))
	var tpErr *textproto.Error
	require.True(t, errors.As(err, &tpErr))
	assert.Equal(t, 553, tpErr.Code)

	assert.NoError(t, mapErr("dele", "x", nil))
}

type stubConn struct {
	id     int
	closed int
}

func (s *stubConn) EnsureDir(context.Context, string) error       { return nil }
func (s *stubConn) List(context.Context, string) ([]Entry, error) { return nil, nil }
func (s *stubConn) Retrieve(context.Context, string, io.Writer) (int64, error) {
	return 0, nil
}
func (s *stubConn) Store(context.Context, string, io.Reader) error { return nil }
func (s *stubConn) Rename(context.Context, string, string) error    { return nil }
func (s *stubConn) Remove(context.Context, string) error            { return nil }
func (s *stubConn) Close() error {
	s.closed++
	return nil
}

func countingDialer(conns *[]*stubConn) DialerFunc {
	return func(ctx context.Context) (Conn, error) {
		c := &stubConn{id: len(*conns) + 1}
		*conns = append(*conns, c)
		return c, nil
	}
}

func TestPool_LazyDialAndReuse(t *testing.T) {
	var conns []*stubConn
	p := NewPool(countingDialer(&conns), nil)
	assert.Equal(t, 0, p.Dials(), "nothing dialled before first Get")

	c1, err := p.Get(context.Background())
	require.NoError(t, err)
	p.Put(c1)

	c2, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, c1, c2)
	assert.Equal(t, 1, p.Dials())

	c3, err := p.Get(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, c2, c3)
	assert.Equal(t, 2, p.Dials())

	p.Put(c2)
	p.Put(c3)
	require.NoError(t, p.CloseAll())
	for _, c := range conns {
		assert.Equal(t, 1, c.closed, "conn %d", c.id)
	}

	_, err = p.Get(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_CloseAllIncludesCheckedOut(t *testing.T) {
	var conns []*stubConn
	p := NewPool(countingDialer(&conns), nil)

	_, err := p.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.CloseAll())
	assert.Equal(t, 1, conns[0].closed)
}

func TestPool_Discard(t *testing.T) {
	var conns []*stubConn
	p := NewPool(countingDialer(&conns), nil)

	c, err := p.Get(context.Background())
	require.NoError(t, err)
	p.Discard(c)
	assert.Equal(t, 1, conns[0].closed)

	require.NoError(t, p.CloseAll())
	assert.Equal(t, 1, conns[0].closed, "discarded conn is not closed twice")
}

func TestPool_DialError(t *testing.T) {
	p := NewPool(DialerFunc(func(ctx context.Context) (Conn, error) {
		return nil, fmt.Errorf("connection refused")
	}), nil)

	_, err := p.Get(context.Background())
	assert.EqualError(t, err, "connection refused")
	assert.Equal(t, 1, p.Dials())
}
