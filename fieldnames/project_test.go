package fieldnames

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name      string
		fields    []FieldDeclaration
		wantNames []string
		wantDescs []string
	}{
		{
			name:      "empty",
			fields:    nil,
			wantNames: []string{},
			wantDescs: []string{},
		},
		{
			name: "no options",
			fields: []FieldDeclaration{
				{Name: "ID"},
				{Name: "Name"},
			},
			wantNames: []string{"ID", "Name"},
			wantDescs: []string{"", ""},
		},
		{
			name: "skip and desc",
			fields: []FieldDeclaration{
				{Name: "ID"},
				{Name: "Name", Description: "User name"},
				{Name: "Password", Skip: true},
			},
			wantNames: []string{"ID", "Name"},
			wantDescs: []string{"", "User name"},
		},
		{
			name: "skip drops description",
			fields: []FieldDeclaration{
				{Name: "Secret", Skip: true, Description: "hidden"},
				{Name: "Visible", Description: "shown"},
			},
			wantNames: []string{"Visible"},
			wantDescs: []string{"shown"},
		},
		{
			name: "all skipped",
			fields: []FieldDeclaration{
				{Name: "A", Skip: true},
				{Name: "B", Skip: true},
			},
			wantNames: []string{},
			wantDescs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Project(tt.fields)
			assert.Equal(t, tt.wantNames, got.Names)
			assert.Equal(t, tt.wantDescs, got.Descriptions)
			assert.Equal(t, len(tt.wantNames), got.Len())
		})
	}
}

// 随机字段序列下，两个列表长度相同且按下标对应同一个未跳过的字段
func TestProject_Alignment(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 200; i++ {
		n := r.IntN(20)
		fields := make([]FieldDeclaration, n)
		var visible []FieldDeclaration
		for j := range fields {
			fields[j] = FieldDeclaration{
				Name:        fmt.Sprintf("F%d", j),
				Skip:        r.IntN(3) == 0,
				Description: fmt.Sprintf("desc %d", r.IntN(5)),
			}
			if !fields[j].Skip {
				visible = append(visible, fields[j])
			}
		}

		got := Project(fields)
		require.Len(t, got.Names, len(visible))
		require.Len(t, got.Descriptions, len(visible))
		for k, f := range visible {
			assert.Equal(t, f.Name, got.Names[k])
			assert.Equal(t, f.Description, got.Descriptions[k])
		}
	}
}
