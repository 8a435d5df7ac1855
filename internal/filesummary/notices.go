package filesummary

import "fmt"

func downloadingNotice(title string) string {
	return fmt.Sprintf("正在下载文件...\n文件名: %s", title)
}

func savedNotice(title, key string) string {
	return fmt.Sprintf("文件已保存: %s\n位置: %s", title, key)
}

// failureNotice returns the user-facing text for a failure, or "" when the
// kind is not reported to the chat.
func failureNotice(run Run) string {
	switch run.Failure {
	case FailureParse:
		return "无法识别该文件消息"
	case FailureTooLarge:
		return fmt.Sprintf("文件过大 (%d 字节)，未下载: %s", run.Descriptor.TotalLength, run.Descriptor.Title)
	case FailureDownloadEmpty:
		return fmt.Sprintf("文件下载失败: %s", run.Descriptor.Title)
	case FailureDownloadPartialRejected:
		return fmt.Sprintf("文件下载不完整 (%d/%d 字节)，已取消总结: %s", run.Bytes, run.Descriptor.TotalLength, run.Descriptor.Title)
	case FailurePersist:
		return fmt.Sprintf("文件保存失败: %s", run.Descriptor.Title)
	case FailureSummarize:
		return fmt.Sprintf("文件总结失败，请稍后再试: %s", run.Descriptor.Title)
	case FailureInternal:
		return "处理文件时发生内部错误"
	default:
		return ""
	}
}
