package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frotalog/registro/internal/common/dto"
)

func TestPushRequest(t *testing.T) {
	valid := &dto.PushRequest{
		Changes: dto.Changes{
			"registros": dto.TableChanges{
				Created: []dto.RawRecord{{"id": "u-1", "descricao": "troca de oleo"}},
				Deleted: []string{"u-2"},
			},
		},
	}
	assert.NoError(t, PushRequest(valid))

	empty := &dto.PushRequest{Changes: dto.Changes{}}
	assert.Error(t, PushRequest(empty))

	noID := &dto.PushRequest{
		Changes: dto.Changes{
			"registros": dto.TableChanges{Created: []dto.RawRecord{{"descricao": "x"}}},
		},
	}
	err := PushRequest(noID)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "without id")

	blankDelete := &dto.PushRequest{
		Changes: dto.Changes{
			"registros": dto.TableChanges{Deleted: []string{""}},
		},
	}
	assert.Error(t, PushRequest(blankDelete))
}

func TestPullWatermark(t *testing.T) {
	wm, err := PullWatermark("")
	assert.NoError(t, err)
	assert.Nil(t, wm)

	wm, err = PullWatermark("null")
	assert.NoError(t, err)
	assert.Nil(t, wm)

	wm, err = PullWatermark("1700000000000")
	assert.NoError(t, err)
	if assert.NotNil(t, wm) {
		assert.Equal(t, int64(1700000000000), *wm)
	}

	_, err = PullWatermark("-1")
	assert.Error(t, err)

	_, err = PullWatermark("abc")
	assert.Error(t, err)
}
