// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ====================== 邮件处理器实现 ======================

// AttachmentHandler 把邮件里的训练集/测试集附件保存到原始数据目录
type AttachmentHandler struct {
	TargetSubject string            // 目标邮件主题关键词
	RawDir        string            // 附件保存目录
	targets       map[string]string // 小写附件名 -> 保存路径
	processedUIDs map[uint32]bool   // 已处理邮件UID记录
	mu            sync.RWMutex      // 保护processedUIDs的读写锁
	log           *zap.Logger
}

// NewAttachmentHandler 只接收与 rawPaths 同名的附件，保存时覆盖对应文件
func NewAttachmentHandler(subject string, log *zap.Logger, rawPaths ...string) *AttachmentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &AttachmentHandler{
		TargetSubject: subject,
		targets:       make(map[string]string, len(rawPaths)),
		processedUIDs: make(map[uint32]bool), // 初始化映射
		log:           log,
	}
	for _, p := range rawPaths {
		h.targets[strings.ToLower(filepath.Base(p))] = p
		if h.RawDir == "" {
			h.RawDir = filepath.Dir(p)
		}
	}
	return h
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *AttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 处理单个邮件，返回保存的文件路径
// 只有全部目标附件都在时才写文件，避免训练集和测试集来自不同邮件
func (h *AttachmentHandler) Handle(email *Email) ([]string, error) {
	if email == nil {
		return nil, nil
	}
	// 检查是否已处理过该邮件
	if h.IsProcessed(email.UID) {
		return nil, nil
	}

	// 检查邮件主题是否包含目标关键词
	if !strings.Contains(email.Subject, h.TargetSubject) {
		h.log.Debug("跳过主题不匹配的邮件", zap.String("subject", email.Subject))
		return nil, nil
	}

	h.log.Info("处理邮件",
		zap.String("subject", email.Subject),
		zap.String("from", email.From),
		zap.String("date", email.Date.Format("2006-01-02 15:04:05")))

	found := h.matchAttachments(email.Attachments)
	if len(found) != len(h.targets) {
		var missing []string
		for name := range h.targets {
			if _, ok := found[name]; !ok {
				missing = append(missing, name)
			}
		}
		return nil, fmt.Errorf("邮件(UID:%d)缺少附件: %s", email.UID, strings.Join(missing, ","))
	}

	// 确保保存目录存在
	if err := os.MkdirAll(h.RawDir, 0755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	var saved []string
	for _, name := range names {
		attachment := found[name]
		filePath := h.targets[name]
		if err := writeFileAtomic(filePath, attachment.Content); err != nil {
			return saved, fmt.Errorf("保存附件失败: %w", err)
		}
		h.log.Info("附件已保存", zap.String("path", filePath), zap.Int("bytes", len(attachment.Content)))
		saved = append(saved, filePath)
	}

	h.markAsProcessed(email.UID)
	return saved, nil
}

// matchAttachments 按文件名（忽略大小写）匹配目标附件，同名取最后一个
func (h *AttachmentHandler) matchAttachments(attachments []*Attachment) map[string]*Attachment {
	found := make(map[string]*Attachment)
	for _, attachment := range attachments {
		name := strings.ToLower(filepath.Base(attachment.Filename))
		if _, ok := h.targets[name]; ok {
			found[name] = attachment
		}
	}
	return found
}

// writeFileAtomic 先写临时文件再改名，监控目录的一方不会读到写了一半的文件
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
