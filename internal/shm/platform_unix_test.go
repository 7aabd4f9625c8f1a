//go:build unix

package shm

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
)

type RegionTestSuite struct {
	suite.Suite
	name string
}

func (s *RegionTestSuite) SetupTest() {
	s.name = fmt.Sprintf("shmrecord-region-%d", os.Getpid())
	_ = RemoveRegion(s.name)
}

func (s *RegionTestSuite) TearDownTest() {
	_ = RemoveRegion(s.name)
}

func (s *RegionTestSuite) TestCreateAttachRemove() {
	ctx := context.Background()
	created, err := MapRegion(ctx, MapOptions{Name: s.name, Size: 64, Create: true})
	s.Require().Nil(err)
	s.Require().True(created.Created)
	s.Require().Len(created.Addr, 64)
	for _, b := range created.Addr {
		s.Require().Equal(byte(0), b)
	}
	created.Addr[7] = 0x7f

	_, err = MapRegion(ctx, MapOptions{Name: s.name, Size: 64, Create: true})
	s.Require().ErrorIs(err, fs.ErrExist)

	attached, err := MapRegion(ctx, MapOptions{Name: "/" + s.name, Size: 64})
	s.Require().Nil(err)
	s.Require().False(attached.Created)
	s.Require().Equal(byte(0x7f), attached.Addr[7])

	size, err := Stat(s.name)
	s.Require().Nil(err)
	s.Require().Equal(int64(64), size)

	s.Require().Nil(UnmapRegion(ctx, attached))
	s.Require().Nil(attached.Addr)
	s.Require().Nil(UnmapRegion(ctx, attached))
	s.Require().Nil(UnmapRegion(ctx, created))

	s.Require().Nil(RemoveRegion(s.name))
	s.Require().ErrorIs(RemoveRegion(s.name), fs.ErrNotExist)
	_, err = MapRegion(ctx, MapOptions{Name: s.name, Size: 64})
	s.Require().ErrorIs(err, fs.ErrNotExist)
}

func (s *RegionTestSuite) TestCreatorDoesNotOverwriteAttacher() {
	ctx := context.Background()
	created, err := MapRegion(ctx, MapOptions{Name: s.name, Size: 48, Create: true})
	s.Require().Nil(err)
	defer UnmapRegion(ctx, created)
	attached, err := MapRegion(ctx, MapOptions{Name: s.name, Size: 48})
	s.Require().Nil(err)
	defer UnmapRegion(ctx, attached)

	// the attacher claims the trailing bytes before the creator touches them
	copy(attached.Addr[16:], []byte{1, 2, 3, 4})
	s.Require().Equal([]byte{1, 2, 3, 4}, created.Addr[16:20])
	for _, b := range created.Addr[:16] {
		s.Require().Equal(byte(0), b)
	}
}

func (s *RegionTestSuite) TestAttachSizeMismatch() {
	ctx := context.Background()
	created, err := MapRegion(ctx, MapOptions{Name: s.name, Size: 64, Create: true})
	s.Require().Nil(err)
	defer UnmapRegion(ctx, created)

	_, err = MapRegion(ctx, MapOptions{Name: s.name, Size: 72})
	var sizeErr *SizeError
	s.Require().ErrorAs(err, &sizeErr)
	s.Require().Equal(int64(64), sizeErr.Got)
	s.Require().Equal(72, sizeErr.Want)

	ro, err := MapRegion(ctx, MapOptions{Name: s.name, ReadOnly: true})
	s.Require().Nil(err)
	s.Require().Len(ro.Addr, 64)
	s.Require().Nil(UnmapRegion(ctx, ro))
}

func (s *RegionTestSuite) TestCreateRejectsBadSize() {
	_, err := MapRegion(context.Background(), MapOptions{Name: s.name, Create: true})
	s.Require().NotNil(err)
}

func TestRegionTestSuite(t *testing.T) {
	suite.Run(t, new(RegionTestSuite))
}
