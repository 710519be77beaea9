package email

import (
	"PassengerPrep/src/config"
	"PassengerPrep/src/processor"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"
)

// buildReport 组装带处理结果附件的邮件
func buildReport(c *config.Config, res *processor.Result, summary string) (*email.Email, error) {
	if len(c.SendEmail.To) == 0 {
		return nil, fmt.Errorf("没有配置收件人")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("PassengerPrep <%s>", c.SendEmail.Username)
	e.To = c.SendEmail.To
	e.Subject = c.SendEmail.Subject
	e.Text = []byte(fmt.Sprintf("运行ID: %s\n训练集: %d 行\n预测集: %d 行\n列数: %d\n%s\n",
		res.RunID, res.TrainRows, res.TestRows, len(res.Columns), summary))

	// 添加附件
	for _, path := range []string{res.TrainPath, res.TestPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("附件文件不存在: %s", path)
		}
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("附件添加失败: %w", err)
		}
	}
	return e, nil
}

// smtpAddr 确保服务器地址包含端口
func smtpAddr(server string) (addr, host string) {
	addr = server
	if !strings.Contains(addr, ":") {
		addr += ":465" // 默认 SSL 端口
	}
	host, _, _ = strings.Cut(addr, ":")
	return addr, host
}

// SendReport 把处理后的训练集和预测集发给配置的收件人
func SendReport(c *config.Config, res *processor.Result, summary string, log *zap.Logger) error {
	e, err := buildReport(c, res, summary)
	if err != nil {
		return err
	}

	addr, host := smtpAddr(c.SendEmail.Server)
	// 发送邮件（显式 TLS）
	err = e.SendWithTLS(
		addr,
		smtp.PlainAuth("", c.SendEmail.Username, c.SendEmail.Password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, addr)
	}
	log.Info("报告邮件已发送", zap.Strings("to", c.SendEmail.To), zap.String("run_id", res.RunID))
	return nil
}
