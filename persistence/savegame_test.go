package persistence

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosh/fallen-8-core-sub000/codec"
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/resource"
)

func sampleDocument() *Document {
	a := &model.Vertex{
		GraphElement: model.GraphElement{
			ID:           0,
			CreationDate: 100,
			Label:        "person",
			Properties: model.NewProperties(map[string]model.Value{
				"name": model.String("alice"),
				"age":  model.Int(31),
				"loc":  model.Floats(1.5, -2),
			}),
		},
		OutEdges: model.EdgeMap{"knows": {2}},
	}
	b := &model.Vertex{
		GraphElement: model.GraphElement{ID: 1, CreationDate: 100, ModificationDelta: 5},
		InEdges:      model.EdgeMap{"knows": {2}},
	}
	e := &model.Edge{
		GraphElement: model.GraphElement{
			ID:           2,
			CreationDate: 101,
			Label:        "knows",
			Properties:   model.NewProperties(map[string]model.Value{"since": model.Bool(true)}),
		},
		SourceID: 0,
		TargetID: 1,
	}
	doc := NewDocument([]model.Element{a, b, e}, 4)
	doc.Indices = []IndexRecord{{
		Name:    "names",
		Kind:    "DictionaryIndex",
		Options: map[string]string{"x": "y"},
		Entries: []IndexEntry{{Key: model.String("alice"), IDs: []model.ElementID{0}}},
	}}
	return doc
}

func TestSavegame_RoundTrip(t *testing.T) {
	ctx := context.Background()
	want := sampleDocument()

	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		for _, comp := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
			t.Run(fmt.Sprintf("%s/%s", c.Name(), comp), func(t *testing.T) {
				data, err := Marshal(ctx, want, WithCodec(c), WithCompression(comp))
				require.NoError(t, err)
				assert.Equal(t, Magic[:], data[:4])

				got, info, err := Unmarshal(ctx, data)
				require.NoError(t, err)
				assert.Equal(t, c.Name(), info.Codec)
				assert.Equal(t, Version, info.Version)

				assert.Equal(t, want.NextID, got.NextID)
				require.Len(t, got.Indices, 1)
				assert.Equal(t, "names", got.Indices[0].Name)
				assert.True(t, got.Indices[0].Entries[0].Key.Equal(model.String("alice")))

				elems, err := got.Graph()
				require.NoError(t, err)
				require.Len(t, elems, 3)

				v, ok := elems[0].(*model.Vertex)
				require.True(t, ok)
				assert.Equal(t, "person", v.Label)
				name, ok := v.Property("name")
				require.True(t, ok)
				assert.Equal(t, "alice", name.StringValue())
				loc, ok := v.Property("loc")
				require.True(t, ok)
				pt, ok := loc.AsPoint()
				require.True(t, ok)
				assert.Equal(t, []float64{1.5, -2}, pt)
				assert.Equal(t, []model.ElementID{2}, v.OutEdges["knows"])

				w := elems[1].(*model.Vertex)
				assert.Equal(t, uint32(5), w.ModificationDelta)
				assert.Nil(t, w.OutEdges)

				e, ok := elems[2].(*model.Edge)
				require.True(t, ok)
				assert.Equal(t, model.ElementID(0), e.SourceID)
				assert.Equal(t, model.ElementID(1), e.TargetID)
			})
		}
	}
}

// repetitiveDocument returns a document every compression shrinks.
func repetitiveDocument(n int) *Document {
	var elems []model.Element
	for i := range n {
		elems = append(elems, &model.Vertex{GraphElement: model.GraphElement{
			ID:         model.ElementID(i),
			Label:      "repetitive-label",
			Properties: model.PropertiesOf(map[string]any{"k": "the same value again"}),
		}})
	}
	return NewDocument(elems, model.ElementID(n))
}

func TestSavegame_CompressionShrinks(t *testing.T) {
	ctx := context.Background()
	doc := repetitiveDocument(500)

	plain, err := Marshal(ctx, doc, WithCompression(CompressionNone))
	require.NoError(t, err)
	for _, comp := range []Compression{CompressionZstd, CompressionLZ4} {
		packed, err := Marshal(ctx, doc, WithCompression(comp))
		require.NoError(t, err)
		assert.Less(t, len(packed), len(plain)/2, comp.String())

		info, err := Inspect(bytes.NewReader(packed))
		require.NoError(t, err)
		assert.Equal(t, comp, info.Compression)
	}
}

func TestSavegame_Corruption(t *testing.T) {
	ctx := context.Background()
	data, err := Marshal(ctx, sampleDocument(), WithCompression(CompressionNone))
	require.NoError(t, err)

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[0] = 'X'
		_, _, err := Unmarshal(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})
	t.Run("truncated", func(t *testing.T) {
		_, _, err := Unmarshal(ctx, data[:len(data)-3])
		assert.ErrorIs(t, err, ErrTruncated)
		_, _, err = Unmarshal(ctx, data[:6])
		assert.ErrorIs(t, err, ErrTruncated)
	})
	t.Run("checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-2] ^= 0xff
		_, _, err := Unmarshal(ctx, bad)
		assert.True(t, IsChecksumMismatch(err), "%v", err)
	})
	t.Run("version", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[4] = 9
		_, _, err := Unmarshal(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidVersion)
	})
}

func TestSavegame_RateLimited(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	data, err := Marshal(ctx, sampleDocument(), WithController(rc))
	require.NoError(t, err)
	_, _, err = Unmarshal(ctx, data, WithController(rc))
	require.NoError(t, err)

	canceled, cancel := context.WithTimeout(ctx, time.Nanosecond)
	defer cancel()
	slow := resource.NewController(resource.Config{IOLimitBytesPerSec: 1})
	<-canceled.Done()
	_, err = Marshal(canceled, sampleDocument(), WithController(slow))
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	assert.ErrorIs(t, err, ErrUnknownCompression)
}

func TestElementRecord_Invalid(t *testing.T) {
	_, err := ElementRecord{Kind: "hyperedge"}.Element()
	assert.Error(t, err)
	_, err = ElementRecord{Kind: KindEdge}.Element()
	assert.Error(t, err)
}
