package integration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wiregram/wiregram"
)

func TestChatReassembly(t *testing.T) {
	s := loadCorpus(t)
	data := []byte{
		0x01, 0x02, 'h', 'i',
		0x02, 0x01, 'x',
		0x01, 0x03, '!', '!', '!',
	}

	var created []string
	c := wiregram.NewContext(s,
		wiregram.WithParseEntry("chat_record"),
		wiregram.WithCategoryHook(func(cat *wiregram.Category) {
			created = append(created, cat.Name)
		}))

	records := 0
	for i := 0; i < len(data); i += 3 {
		c.Feed(data[i:min(i+3, len(data))])
		for c.Buffered() > 0 {
			_, err := c.Parse()
			if errors.Is(err, wiregram.ErrIncomplete) {
				break
			}
			require.NoError(t, err)
			records++
		}
	}
	require.Equal(t, 3, records)
	require.Equal(t, 0, c.Buffered())
	require.Equal(t, []string{"chat"}, created)

	cat, ok := c.Category("chat")
	require.True(t, ok)
	streams := cat.Streams()
	require.Len(t, streams, 2)

	one, two := streams[0], streams[1]
	require.Equal(t, "1", one.Key)
	require.Equal(t, []byte("hi!!!"), one.Bytes())
	require.Len(t, one.Segments, 2)
	require.Equal(t, int64(2), one.Segments[0].Offset)
	require.Equal(t, int64(9), one.Segments[1].Offset)
	require.Equal(t, 3, one.Segments[1].Length)
	length, ok := one.Segments[1].Meta.Get("length")
	require.True(t, ok)
	require.Equal(t, int64(3), length)

	require.Equal(t, "2", two.Key)
	require.Equal(t, []byte("x"), two.Bytes())
	require.Equal(t, int64(6), two.Segments[0].Offset)
}
