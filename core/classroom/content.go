package classroom

import (
	"context"

	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
)

// ContentBlocks lists the content of a classroom in display order.
func (svc *Service) ContentBlocks(ctx context.Context, p user.Principal, classID int64) ([]ContentBlock, error) {
	if _, err := svc.GetForMember(ctx, p, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryContentBlocks(ctx, classID)
}

// AddContentBlock appends a block after the last one of the classroom.
func (svc *Service) AddContentBlock(ctx context.Context, p user.Principal, classID int64, form ContentBlockForm) (ContentBlock, error) {
	if _, err := svc.GetForManager(ctx, p, classID); err != nil {
		return ContentBlock{}, err
	}

	var block ContentBlock
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		maxOrder, err := svc.repo.MaxContentOrder(ctx, classID, exec)
		if err != nil {
			return errors.Wrap(err, "finding last content order")
		}
		block, err = svc.repo.CreateContentBlock(ctx, ContentBlock{
			ClassRoomID: classID,
			Content:     form.Content,
			Order:       maxOrder + 1,
			CreatedAt:   NowFunc().UTC(),
		}, exec)
		return errors.Wrap(err, "creating content block")
	})
	return block, err
}

func (svc *Service) getManagedBlock(ctx context.Context, p user.Principal, blockID int64) (ContentBlock, error) {
	block, err := svc.repo.GetContentBlock(ctx, blockID)
	if err != nil {
		return ContentBlock{}, err
	}
	if _, err := svc.GetForManager(ctx, p, block.ClassRoomID); err != nil {
		return ContentBlock{}, err
	}
	return block, nil
}

func (svc *Service) UpdateContentBlock(ctx context.Context, p user.Principal, blockID int64, form ContentBlockForm) (ContentBlock, error) {
	block, err := svc.getManagedBlock(ctx, p, blockID)
	if err != nil {
		return ContentBlock{}, err
	}
	now := NowFunc().UTC()
	block.Content = form.Content
	block.UpdatedAt = &now
	block, err = svc.repo.UpdateContentBlock(ctx, block)
	return block, errors.Wrap(err, "updating content block")
}

func (svc *Service) DeleteContentBlock(ctx context.Context, p user.Principal, blockID int64) error {
	if _, err := svc.getManagedBlock(ctx, p, blockID); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteContentBlock(ctx, blockID), "deleting content block")
}
