package pinyin

import (
	"testing"

	"github.com/f3rmion/zhuyin/internal/zhuyin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		pinyin string
		want   string
	}{
		{"hǎo", "ㄏㄠˇ"},
		{"nǐ", "ㄋㄧˇ"},
		{"zhōng", "ㄓㄨㄥ"},
		{"xióng", "ㄒㄩㄥˊ"},
		{"jū", "ㄐㄩ"},
		{"jūn", "ㄐㄩㄣ"},
		{"qù", "ㄑㄩˋ"},
		{"yuè", "ㄩㄝˋ"},
		{"yī", "ㄧ"},
		{"yīng", "ㄧㄥ"},
		{"yǒu", "ㄧㄡˇ"},
		{"yòng", "ㄩㄥˋ"},
		{"yún", "ㄩㄣˊ"},
		{"wǒ", "ㄨㄛˇ"},
		{"wǔ", "ㄨˇ"},
		{"wèi", "ㄨㄟˋ"},
		{"liù", "ㄌㄧㄡˋ"},
		{"guì", "ㄍㄨㄟˋ"},
		{"lún", "ㄌㄨㄣˊ"},
		{"lǜ", "ㄌㄩˋ"},
		{"lüè", "ㄌㄩㄝˋ"},
		{"xiè", "ㄒㄧㄝˋ"},
		{"bō", "ㄅㄛ"},
		{"shì", "ㄕˋ"},
		{"zì", "ㄗˋ"},
		{"ér", "ㄦˊ"},
		{"è", "ㄜˋ"},
		{"tái", "ㄊㄞˊ"},
		{"běi", "ㄅㄟˇ"},
	}
	for _, tt := range tests {
		t.Run(tt.pinyin, func(t *testing.T) {
			got, ok := Convert(tt.pinyin)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Key())
			assert.True(t, got.Complete())
		})
	}
}

func TestConvertTones(t *testing.T) {
	first, ok := Convert("mā")
	require.True(t, ok)
	assert.Equal(t, zhuyin.NoTone, first.Get(zhuyin.Tone))

	neutral, ok := Convert("le")
	require.True(t, ok)
	assert.Equal(t, "ㄌㄜ˙", neutral.Key())
}

func TestConvertRejects(t *testing.T) {
	for _, py := range []string{"", "xyz", "qq"} {
		_, ok := Convert(py)
		assert.False(t, ok, py)
	}
}

func TestSpell(t *testing.T) {
	p := NewParser()

	spelled := p.Spell("你好")
	require.Len(t, spelled, 2)
	assert.Equal(t, "ㄋㄧˇ", spelled[0].Key())
	assert.Equal(t, "ㄏㄠˇ", spelled[1].Key())

	assert.Len(t, p.Spell("a你!"), 1, "non-Han characters are skipped")
	assert.Empty(t, p.Spell("abc"))
}

func TestReadings(t *testing.T) {
	p := NewParser()

	readings := p.Readings("好")
	require.Len(t, readings, 1)
	require.NotEmpty(t, readings[0])
	assert.Equal(t, "好", readings[0][0].Char)
	assert.Equal(t, "hǎo", readings[0][0].Pinyin)
	for _, r := range readings[0] {
		assert.True(t, r.Syllable.HasSymbols(), r.Pinyin)
	}
}
