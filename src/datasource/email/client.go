package email

import (
	"PassengerPrep/src/datasource/file"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

const (
	MaxFetchMessages   = 100            // 单次最大获取邮件数量
	FetchBufferSize    = 10             // 邮件获取通道缓冲区大小
	RecentMailDuration = 24 * time.Hour // 只看最近一天的未读邮件
)

// MailService 邮箱访问接口，测试中用内存实现替换
type MailService interface {
	Connect() error
	Disconnect()

	// FetchUnreadEmails 最近的未读邮件，附件只包含原始数据文件
	FetchUnreadEmails() ([]*Email, error)

	// MarkSeen 把处理完的邮件标记为已读，之后不会再被取到
	MarkSeen(uids ...uint32) error
}

// EmailHandler 处理一封邮件，返回保存下来的文件路径
type EmailHandler interface {
	Handle(email *Email) ([]string, error)
}

type Email struct {
	UID         uint32    // IMAP UID
	Date        time.Time // 发送时间
	From        string    // 已解码
	Subject     string    // 已解码
	Attachments []*Attachment
}

type Attachment struct {
	Filename string
	Content  []byte
}

// rawDataExt 只收集原始数据附件，图片、签名之类的不读入内存
var rawDataExt = map[string]bool{file.ExtCSV: true, file.ExtXLSX: true}

// EmailClient IMAP 客户端
type EmailClient struct {
	server    string // 含端口，如 "imap.qq.com:993"
	username  string
	password  string // 密码或授权码
	client    *client.Client
	mu        sync.Mutex
	connected bool
	log       *zap.Logger
}

// NewEmailClient log 为 nil 时不记录解析告警
func NewEmailClient(server, username, password string, log *zap.Logger) *EmailClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailClient{
		server:   server,
		username: username,
		password: password,
		log:      log,
	}
}

// Connect 建立 TLS 连接并登录，已有可用连接时直接复用
func (s *EmailClient) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		if _, err := s.client.Capability(); err == nil {
			return nil
		}
		s.client.Logout()
		s.client = nil
		s.connected = false
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}
	if err := c.Login(s.username, s.password); err != nil {
		c.Logout()
		return fmt.Errorf("登录失败: %w", err)
	}

	s.client = c
	s.connected = true
	return nil
}

func (s *EmailClient) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Logout()
		s.client = nil
	}
	s.connected = false
}

// selectInbox 调用方需持有 s.mu
func (s *EmailClient) selectInbox() error {
	if !s.connected {
		return fmt.Errorf("未连接到邮件服务器")
	}
	if _, err := s.client.Select("INBOX", false); err != nil {
		return fmt.Errorf("选择邮箱失败: %w", err)
	}
	return nil
}

// MarkSeen 按 UID 加上 \Seen 标志
func (s *EmailClient) MarkSeen(uids ...uint32) error {
	if len(uids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.selectInbox(); err != nil {
		return err
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.client.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("标记已读失败: %w", err)
	}
	return nil
}

// FetchUnreadEmails 收件箱中最近 RecentMailDuration 内的未读邮件，最多 MaxFetchMessages 封
func (s *EmailClient) FetchUnreadEmails() ([]*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.selectInbox(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Now().Add(-RecentMailDuration)
	ids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("搜索邮件失败: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxFetchMessages {
		ids = ids[:MaxFetchMessages]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	// Peek 取正文时不自动加 \Seen，附件保存后再由 MarkSeen 标记
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, FetchBufferSize)
	done := make(chan error, 1)
	go func() {
		done <- s.client.Fetch(seqset, items, messages)
	}()

	var emails []*Email
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			s.log.Warn("邮件正文为空", zap.Uint32("uid", msg.Uid))
			continue
		}
		email, err := readMessage(msg.Uid, body, s.log)
		if err != nil {
			s.log.Warn("解析邮件失败", zap.Uint32("uid", msg.Uid), zap.Error(err))
			continue
		}
		emails = append(emails, email)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("获取邮件内容失败: %w", err)
	}
	return emails, nil
}

// readMessage 解析一封 MIME 邮件，只收集扩展名为 csv/xlsx 的附件
func readMessage(uid uint32, r io.Reader, log *zap.Logger) (*Email, error) {
	// 未知字符集只影响正文解码，附件仍可读取
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("创建邮件阅读器失败: %w", err)
	}
	defer mr.Close()

	date, _ := mr.Header.Date()
	email := &Email{
		UID:     uid,
		Date:    date,
		From:    decodeHeader(mr.Header.Get("From")),
		Subject: decodeHeader(mr.Header.Get("Subject")),
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			// 分段边界坏了，后面的内容也读不出来
			log.Warn("读取邮件分段失败", zap.Uint32("uid", uid), zap.Error(err))
			break
		}
		h, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}

		name, _ := h.Filename()
		name = decodeHeader(name)
		if !rawDataExt[strings.ToLower(filepath.Ext(name))] {
			log.Debug("跳过附件", zap.Uint32("uid", uid), zap.String("filename", name))
			continue
		}
		content, err := io.ReadAll(part.Body)
		if err != nil {
			log.Warn("读取附件失败", zap.Uint32("uid", uid), zap.String("filename", name), zap.Error(err))
			continue
		}
		email.Attachments = append(email.Attachments, &Attachment{Filename: name, Content: content})
	}
	return email, nil
}

// headerDecoder 解码 =?charset?encoding?text?= 形式的邮件头
// 国内邮箱常用 GBK/GB2312，标准库只认 utf-8 和 latin-1
var headerDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(charset) {
		case "gbk", "gb2312":
			return transform.NewReader(input, simplifiedchinese.GBK.NewDecoder()), nil
		case "gb18030":
			return transform.NewReader(input, simplifiedchinese.GB18030.NewDecoder()), nil
		}
		return input, nil
	},
}

// decodeHeader 解码失败时原样返回
func decodeHeader(header string) string {
	decoded, err := headerDecoder.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// CheckAndProcessEmails 连接邮箱，返回主题包含 keyword 的最新一封未读邮件；没有时返回 nil
func CheckAndProcessEmails(mailService MailService, keyword string, logger *zap.Logger) (*Email, error) {
	start := time.Now()
	logger.Info("开始检查邮箱", zap.String("keyword", keyword))

	if err := mailService.Connect(); err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	defer mailService.Disconnect()

	emails, err := mailService.FetchUnreadEmails()
	if err != nil {
		return nil, fmt.Errorf("获取邮件失败: %w", err)
	}

	target := filterLatestTargetEmail(emails, keyword)
	if target == nil {
		logger.Info("没有目标邮件", zap.Int("unread", len(emails)))
		return nil, nil
	}

	logger.Info("找到目标邮件",
		zap.Uint32("uid", target.UID),
		zap.String("subject", target.Subject),
		zap.Int("attachments", len(target.Attachments)),
		zap.Duration("elapsed", time.Since(start)))
	return target, nil
}

// filterLatestTargetEmail 主题匹配的邮件中日期最新的一封
func filterLatestTargetEmail(emails []*Email, keyword string) *Email {
	var latest *Email
	for _, e := range emails {
		if !strings.Contains(e.Subject, keyword) {
			continue
		}
		if latest == nil || e.Date.After(latest.Date) {
			latest = e
		}
	}
	return latest
}
