package email

import (
	"PassengerPrep/src/processor"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNoNewData 邮箱里没有尚未处理的目标邮件
var ErrNoNewData = errors.New("no new raw data in mailbox")

// MailboxProvider 从邮箱拉取原始数据到本地目录，再以本地文件的形式提供给流水线
type MailboxProvider struct {
	service   MailService
	handler   EmailHandler
	keyword   string
	trainPath string
	testPath  string
	log       *zap.Logger
}

func NewMailboxProvider(service MailService, keyword, trainPath, testPath string, log *zap.Logger) *MailboxProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailboxProvider{
		service:   service,
		handler:   NewAttachmentHandler(keyword, log, trainPath, testPath),
		keyword:   keyword,
		trainPath: trainPath,
		testPath:  testPath,
		log:       log,
	}
}

// Fetch 检查一次邮箱并保存附件
// 没有新邮件时返回 ErrNoNewData，本地已有的文件保持不变
func (p *MailboxProvider) Fetch() ([]string, error) {
	email, err := CheckAndProcessEmails(p.service, p.keyword, p.log)
	if err != nil {
		return nil, processor.NewDataSourceError("mailbox", "check failed", err)
	}
	if email == nil {
		return nil, ErrNoNewData
	}

	saved, err := p.handler.Handle(email)
	if err != nil {
		return saved, processor.NewDataSourceError("mailbox", fmt.Sprintf("message %d", email.UID), err)
	}
	if len(saved) == 0 {
		return nil, ErrNoNewData
	}

	// 标记失败不影响本次数据，下次可能重复拉取同一封邮件
	if err := p.service.Connect(); err == nil {
		if err := p.service.MarkSeen(email.UID); err != nil {
			p.log.Warn("标记已读失败", zap.Uint32("uid", email.UID), zap.Error(err))
		}
		p.service.Disconnect()
	} else {
		p.log.Warn("标记已读失败", zap.Uint32("uid", email.UID), zap.Error(err))
	}
	return saved, nil
}

func (p *MailboxProvider) Train() processor.Source { return processor.FileSource{Path: p.trainPath} }

func (p *MailboxProvider) Test() processor.Source { return processor.FileSource{Path: p.testPath} }
